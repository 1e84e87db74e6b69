package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

type FileAPI struct {
	r client.Requester
}

// UploadFile attaches up to an existing message and returns the file id.
// Uploads larger than models.MaxUploadSize are rejected before any request.
func (a *FileAPI) UploadFile(ctx context.Context, token string, messageID int64, up models.Upload) (int64, error) {
	if err := requireToken(token); err != nil {
		return 0, err
	}
	if err := requireID("message_id", messageID); err != nil {
		return 0, err
	}
	if up.Content == nil {
		return 0, fmt.Errorf("%w: file is required", client.ErrInvalidArgument)
	}
	if err := requireField("file name", up.Name); err != nil {
		return 0, err
	}
	if up.Size > models.MaxUploadSize {
		return 0, client.ErrFileTooLarge
	}

	var data struct {
		FileID int64 `json:"file_id"`
	}
	err := postDecode(ctx, a.r, token, "/api/v1/file", &client.Multipart{
		Fields:    []client.FormField{{Name: "message_id", Value: itoa(messageID)}},
		FileField: "file",
		FileName:  up.Name,
		File:      &capReader{r: up.Content, left: models.MaxUploadSize},
	}, &data)
	if err != nil {
		return 0, err
	}
	if data.FileID <= 0 {
		return 0, malformed("missing file_id")
	}
	return data.FileID, nil
}

func (a *FileAPI) GetFile(ctx context.Context, token string, id int64) (models.Attachment, error) {
	if err := requireToken(token); err != nil {
		return models.Attachment{}, err
	}
	if err := requireID("file id", id); err != nil {
		return models.Attachment{}, err
	}
	raw, err := a.r.Do(ctx, client.Request{Method: http.MethodGet, Path: idPath("/api/v1/file/%d", id), Token: token})
	if err != nil {
		return models.Attachment{}, err
	}
	env, err := decode[models.Attachment](raw, true)
	if err != nil {
		return models.Attachment{}, err
	}
	return *env.Data, nil
}

func (a *FileAPI) DeleteFile(ctx context.Context, token string, id int64) error {
	return simpleCall(ctx, a.r, token, http.MethodDelete, "/api/v1/file/%d", "file id", id, nil)
}

// capReader fails with client.ErrFileTooLarge once more than left bytes are
// read, covering uploads whose declared Size understates the content.
type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, client.ErrFileTooLarge
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, client.ErrFileTooLarge
	}
	return n, err
}
