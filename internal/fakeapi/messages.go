package fakeapi

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/gin-gonic/gin"
)

// blockFor returns the block of key, creating it on first use. s.mu must be
// held.
func (s *Server) blockFor(key models.ThreadKey) *block {
	b, found := s.blocks[key]
	if !found {
		b = &block{ID: s.newID(), Key: key, Status: models.BlockStatusNormal}
		s.blocks[key] = b
	}
	return b
}

func threadKeyFrom(formID int64, functionID, nonfunctionID *int64) models.ThreadKey {
	key := models.ThreadKey{FormID: formID}
	if functionID != nil {
		key.FunctionID = *functionID
	}
	if nonfunctionID != nil {
		key.NonfunctionID = *nonfunctionID
	}
	return key
}

// filesOf returns the attachment summaries of a message. s.mu must be held.
func (s *Server) filesOf(messageID int64) []models.FileRef {
	out := []models.FileRef{}
	for _, f := range s.files {
		if f.MessageID == messageID {
			out = append(out, models.FileRef{ID: f.ID, FileName: f.FileName, FileSize: f.FileSize})
		}
	}
	return out
}

// Messages returns copies of the stored messages of key in creation order.
func (s *Server) Messages(key models.ThreadKey) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.Key == key {
			out = append(out, m.Message)
		}
	}
	return out
}

func (s *Server) listMessages(c *gin.Context) {
	key := models.ThreadKey{
		FormID:        queryID(c, "form_id"),
		FunctionID:    queryID(c, "function_id"),
		NonfunctionID: queryID(c, "nonfunction_id"),
	}
	if err := key.Validate(); err != nil {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}
	page := queryInt(c, "page", 1)
	size := queryInt(c, "page_size", 20)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupForm(c, key.FormID) == nil {
		return
	}
	b := s.blockFor(key)

	var thread []models.Message
	for _, m := range s.messages {
		if m.BlockID == b.ID {
			msg := m.Message
			msg.Files = s.filesOf(m.ID)
			thread = append(thread, msg)
		}
	}
	out := []models.Message{}
	if start := (page - 1) * size; start < len(thread) {
		out = thread[start:min(start+size, len(thread))]
	}
	ok(c, gin.H{"messages": out, "page": page, "page_size": size, "total": len(thread)}, "")
}

func (s *Server) createMessage(c *gin.Context) {
	var in models.MessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid body")
		return
	}
	key := threadKeyFrom(in.FormID, in.FunctionID, in.NonfunctionID)
	if err := key.Validate(); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if strings.TrimSpace(in.TextContent) == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "text_content required")
		return
	}

	s.mu.Lock()
	if s.lookupForm(c, key.FormID) == nil {
		s.mu.Unlock()
		return
	}
	u := currentUser(c)
	b := s.blockFor(key)
	m := &storedMessage{
		Key: key,
		Message: models.Message{
			ID:            s.newID(),
			BlockID:       b.ID,
			UserID:        u.ID,
			FormID:        key.FormID,
			FunctionID:    in.FunctionID,
			NonfunctionID: in.NonfunctionID,
			SenderName:    u.DisplayName,
			TextContent:   in.TextContent,
			CreatedAt:     now(),
			Files:         []models.FileRef{},
		},
	}
	s.messages = append(s.messages, m)
	msg := m.Message
	s.mu.Unlock()

	s.hub.broadcast(key.Room(), gin.H{"type": "message", "action": "create", "message": msg})
	ok(c, gin.H{"message_id": msg.ID}, "Message sent")
}

// ownMessage finds a message written by the caller. s.mu must be held.
func (s *Server) ownMessage(c *gin.Context, id int64) (int, *storedMessage) {
	for i, m := range s.messages {
		if m.ID != id {
			continue
		}
		if m.UserID != currentUser(c).ID {
			fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
			return -1, nil
		}
		return i, m
	}
	fail(c, http.StatusNotFound, "NOT_FOUND", "Message not found")
	return -1, nil
}

func (s *Server) updateMessage(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	var body struct {
		TextContent *string `json:"text_content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.TextContent == nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "No valid fields to update")
		return
	}

	s.mu.Lock()
	_, m := s.ownMessage(c, id)
	if m == nil {
		s.mu.Unlock()
		return
	}
	m.TextContent = *body.TextContent
	event := gin.H{"type": "message", "action": "update", "message": gin.H{
		"id": m.ID, "block_id": m.BlockID, "user_id": m.UserID, "text_content": m.TextContent, "updated_at": now(),
	}}
	room := m.Key.Room()
	s.mu.Unlock()

	s.hub.broadcast(room, event)
	ok(c, nil, "Message updated")
}

func (s *Server) deleteMessage(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	i, m := s.ownMessage(c, id)
	if m == nil {
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	for fid, f := range s.files {
		if f.MessageID == id {
			delete(s.files, fid)
		}
	}
	room := m.Key.Room()
	s.mu.Unlock()

	s.hub.broadcast(room, gin.H{"type": "message", "action": "delete", "message_id": id})
	ok(c, nil, "Message deleted")
}

// BlockStatus reports the status of a block.
func (s *Server) BlockStatus(blockID int64) (models.BlockStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blocks {
		if b.ID == blockID {
			return b.Status, true
		}
	}
	return "", false
}

func (s *Server) updateBlockStatus(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	_ = c.ShouldBindJSON(&body)
	status, err := models.ParseBlockStatus(body.Status)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "status must be normal or urgent")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blocks {
		if b.ID != id {
			continue
		}
		if s.lookupForm(c, b.Key.FormID) == nil {
			return
		}
		b.Status = status
		ok(c, nil, "Block status updated")
		return
	}
	fail(c, http.StatusNotFound, "NOT_FOUND", "Block not found")
}
