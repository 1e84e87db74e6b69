package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Requester is the transport contract used by resource clients.
type Requester interface {
	Do(ctx context.Context, req Request) ([]byte, error)
}

// Request describes one backend call.
type Request struct {
	Method string
	// Path is appended to the configured base URL, e.g. "/api/v1/forms".
	Path  string
	Query url.Values
	// Body is JSON-encoded unless it is a *Multipart.
	Body  any
	Token string
	// Header holds extra headers. Content-Type is ignored for multipart bodies.
	Header http.Header
}

// FormField is a plain multipart field.
type FormField struct {
	Name  string
	Value string
}

// Multipart is a multipart/form-data body with plain fields followed by a
// single file part.
type Multipart struct {
	Fields    []FormField
	FileField string
	FileName  string
	File      io.Reader
}
