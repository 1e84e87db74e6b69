package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

type MessageAPI struct {
	r client.Requester
}

func (a *MessageAPI) ListMessages(ctx context.Context, token string, q models.MessageQuery) (models.MessagePage, error) {
	if err := requireToken(token); err != nil {
		return models.MessagePage{}, err
	}
	if err := validKey(q.Key); err != nil {
		return models.MessagePage{}, err
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}

	query := url.Values{
		"form_id":   {itoa(q.Key.FormID)},
		"page":      {strconv.Itoa(q.Page)},
		"page_size": {strconv.Itoa(q.PageSize)},
	}
	if q.Key.FunctionID != 0 {
		query.Set("function_id", itoa(q.Key.FunctionID))
	}
	if q.Key.NonfunctionID != 0 {
		query.Set("nonfunction_id", itoa(q.Key.NonfunctionID))
	}

	raw, err := a.r.Do(ctx, client.Request{Method: http.MethodGet, Path: "/api/v1/messages", Query: query, Token: token})
	if err != nil {
		return models.MessagePage{}, err
	}
	env, err := decode[models.MessagePage](raw, true)
	if err != nil {
		return models.MessagePage{}, err
	}

	out := *env.Data
	if out.Messages == nil {
		out.Messages = []models.Message{}
	}
	for i := range out.Messages {
		if out.Messages[i].Files == nil {
			out.Messages[i].Files = []models.FileRef{}
		}
	}
	if out.Page == 0 {
		out.Page = q.Page
	}
	if out.PageSize == 0 {
		out.PageSize = q.PageSize
	}
	return out, nil
}

// SendMessage posts a message and returns its id.
func (a *MessageAPI) SendMessage(ctx context.Context, token string, in models.MessageInput) (int64, error) {
	if err := requireToken(token); err != nil {
		return 0, err
	}
	key := models.ThreadKey{FormID: in.FormID}
	if in.FunctionID != nil {
		key.FunctionID = *in.FunctionID
	}
	if in.NonfunctionID != nil {
		key.NonfunctionID = *in.NonfunctionID
	}
	if err := validKey(key); err != nil {
		return 0, err
	}
	if err := requireField("text_content", in.TextContent); err != nil {
		return 0, err
	}

	var data struct {
		MessageID int64 `json:"message_id"`
	}
	if err := postDecode(ctx, a.r, token, "/api/v1/message", in, &data); err != nil {
		return 0, err
	}
	if data.MessageID <= 0 {
		return 0, malformed("missing message_id")
	}
	return data.MessageID, nil
}

func (a *MessageAPI) UpdateMessage(ctx context.Context, token string, id int64, text string) error {
	if err := requireField("text_content", text); err != nil {
		return err
	}
	return simpleCall(ctx, a.r, token, http.MethodPut, "/api/v1/message/%d", "message id", id,
		map[string]string{"text_content": text})
}

func (a *MessageAPI) DeleteMessage(ctx context.Context, token string, id int64) error {
	return simpleCall(ctx, a.r, token, http.MethodDelete, "/api/v1/message/%d", "message id", id, nil)
}

// UpdateBlockStatus flags a discussion block. The route has no /api/v1
// prefix on the backend.
func (a *MessageAPI) UpdateBlockStatus(ctx context.Context, token string, blockID int64, status models.BlockStatus) error {
	if err := requireToken(token); err != nil {
		return err
	}
	if err := requireField("status", string(status)); err != nil {
		return err
	}
	return simpleCall(ctx, a.r, token, http.MethodPut, "/block/%d/status", "block id", blockID,
		map[string]string{"status": string(status)})
}

func validKey(k models.ThreadKey) error {
	if err := requireID("form_id", k.FormID); err != nil {
		return err
	}
	if err := k.Validate(); err != nil {
		return invalid(err)
	}
	return nil
}
