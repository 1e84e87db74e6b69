package models

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxUploadSize is the largest attachment the client forwards (10 MiB).
const MaxUploadSize int64 = 10 << 20

// FileRef is the attachment summary embedded in a message.
type FileRef struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// Attachment is the record returned by GET /api/v1/file/:id.
type Attachment struct {
	ID          int64  `json:"id"`
	MessageID   int64  `json:"message_id,omitempty"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	FileExt     string `json:"file_ext,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
}

// Upload is a file to attach to a message. Size must be the exact number of
// bytes Content will yield; it is checked before anything is sent.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

// OpenUpload opens a local file as an Upload. The returned closer must be
// called once the upload is finished.
func OpenUpload(path string) (Upload, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Upload{}, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Upload{}, nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return Upload{}, nil, fmt.Errorf("%s is a directory", path)
	}
	return Upload{Name: filepath.Base(path), Size: st.Size(), Content: f}, f, nil
}
