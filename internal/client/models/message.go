package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAmbiguousThread is returned when both a function and a nonfunction id
// are given for one thread.
var ErrAmbiguousThread = errors.New("function_id and nonfunction_id are mutually exclusive")

// BlockStatus flags a discussion block.
type BlockStatus string

const (
	BlockStatusNormal BlockStatus = "normal"
	BlockStatusUrgent BlockStatus = "urgent"
)

// ParseBlockStatus accepts "normal" or "urgent" in any case.
func ParseBlockStatus(s string) (BlockStatus, error) {
	switch BlockStatus(strings.ToLower(strings.TrimSpace(s))) {
	case BlockStatusNormal:
		return BlockStatusNormal, nil
	case BlockStatusUrgent:
		return BlockStatusUrgent, nil
	}
	return "", fmt.Errorf("unknown block status %q", s)
}

// ThreadKey identifies one discussion: the general thread of a form, or the
// thread of one of its functions or nonfunctions.
type ThreadKey struct {
	FormID        int64
	FunctionID    int64
	NonfunctionID int64
}

// Validate checks the key invariants.
func (k ThreadKey) Validate() error {
	if k.FormID <= 0 {
		return errors.New("form_id is required")
	}
	if k.FunctionID != 0 && k.NonfunctionID != 0 {
		return ErrAmbiguousThread
	}
	return nil
}

// Room returns the backend broadcast room name for the key.
func (k ThreadKey) Room() string {
	switch {
	case k.FunctionID != 0:
		return fmt.Sprintf("form:%d:function:%d", k.FormID, k.FunctionID)
	case k.NonfunctionID != 0:
		return fmt.Sprintf("form:%d:nonfunction:%d", k.FormID, k.NonfunctionID)
	}
	return fmt.Sprintf("form:%d:general", k.FormID)
}

// Message is a discussion entry.
type Message struct {
	ID            int64     `json:"id"`
	BlockID       int64     `json:"block_id"`
	UserID        int64     `json:"user_id"`
	FormID        int64     `json:"form_id,omitempty"`
	FunctionID    *int64    `json:"function_id,omitempty"`
	NonfunctionID *int64    `json:"nonfunction_id,omitempty"`
	SenderName    string    `json:"sender_name,omitempty"`
	TextContent   string    `json:"text_content"`
	CreatedAt     string    `json:"created_at"`
	Files         []FileRef `json:"files"`
}

// MessageInput is the body of POST /api/v1/message. Nil ids are sent as
// JSON null.
type MessageInput struct {
	FormID        int64  `json:"form_id"`
	FunctionID    *int64 `json:"function_id"`
	NonfunctionID *int64 `json:"nonfunction_id"`
	TextContent   string `json:"text_content"`
}

// NewMessageInput builds the body for key.
func NewMessageInput(key ThreadKey, text string) MessageInput {
	in := MessageInput{FormID: key.FormID, TextContent: text}
	if key.FunctionID != 0 {
		id := key.FunctionID
		in.FunctionID = &id
	}
	if key.NonfunctionID != 0 {
		id := key.NonfunctionID
		in.NonfunctionID = &id
	}
	return in
}

// MessageQuery selects one page of a thread.
type MessageQuery struct {
	Key      ThreadKey
	Page     int
	PageSize int
}

// MessagePage is one page of a thread.
type MessagePage struct {
	Messages []Message `json:"messages"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
}
