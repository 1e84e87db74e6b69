package fakeapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Attachment returns a copy of the stored file record.
func (s *Server) Attachment(id int64) (models.Attachment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, found := s.files[id]
	if !found {
		return models.Attachment{}, false
	}
	return *f, true
}

// messageForm checks the caller can see the message's form. s.mu must be held.
func (s *Server) messageForm(c *gin.Context, messageID int64) bool {
	for _, m := range s.messages {
		if m.ID == messageID {
			return s.lookupForm(c, m.FormID) != nil
		}
	}
	fail(c, http.StatusNotFound, "NOT_FOUND", "Message not found")
	return false
}

func (s *Server) uploadFile(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.PostForm("message_id"), 10, 64)
	if err != nil || messageID <= 0 {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message_id required")
		return
	}
	hdr, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file required")
		return
	}
	if hdr.Size > models.MaxUploadSize {
		fail(c, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "File size exceeds 10MB")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.messageForm(c, messageID) {
		return
	}
	ext := filepath.Ext(hdr.Filename)
	rec := &models.Attachment{
		ID:          s.newID(),
		MessageID:   messageID,
		FileName:    hdr.Filename,
		FileSize:    hdr.Size,
		FileExt:     ext,
		StoragePath: fmt.Sprintf("uploads/%s%s", uuid.NewString(), ext),
	}
	s.files[rec.ID] = rec
	ok(c, gin.H{"file_id": rec.ID}, "File uploaded")
}

func (s *Server) getFile(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, found := s.files[id]
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "File not found")
		return
	}
	if !s.messageForm(c, f.MessageID) {
		return
	}
	ok(c, gin.H{"id": f.ID, "file_name": f.FileName, "file_size": f.FileSize, "storage_path": f.StoragePath}, "")
}

func (s *Server) deleteFile(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, found := s.files[id]
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "File not found")
		return
	}
	if !s.messageForm(c, f.MessageID) {
		return
	}
	delete(s.files, id)
	ok(c, nil, "File deleted")
}
