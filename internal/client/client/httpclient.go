package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/logging"
	"github.com/google/uuid"
)

const (
	RequestIDHeaderName = "X-Request-ID"
	maxResponseSize     = 32 << 20
)

type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	logger  logging.Logger
	timeout time.Duration
	newID   func() string
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.timeout = d }
}

// NewHTTPClient returns a client for the backend rooted at baseURL
// (e.g. "http://localhost:8000").
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	c := &HTTPClient{
		baseURL: u,
		http:    &http.Client{},
		logger:  logging.Discard(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured server root.
func (c *HTTPClient) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

func (c *HTTPClient) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Do issues req once and returns the raw success body.
func (c *HTTPClient) Do(ctx context.Context, req Request) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.endpoint(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	requestID := c.newID()
	httpReq.Header.Set(RequestIDHeaderName, requestID)

	log := c.logger.With("request_id", requestID, "method", method, "path", req.Path)
	started := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Debug(ctx, "request failed", "error", err)
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, mapTransportError(err)
	}

	log.Debug(ctx, "request done", "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// encodeBody returns the request body and, when it must be set explicitly,
// its content type.
func encodeBody(v any) (io.Reader, string, error) {
	switch b := v.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, f := range b.Fields {
			if err := w.WriteField(f.Name, f.Value); err != nil {
				return nil, "", fmt.Errorf("encode multipart: %w", err)
			}
		}
		if b.File != nil {
			part, err := w.CreateFormFile(b.FileField, b.FileName)
			if err != nil {
				return nil, "", fmt.Errorf("encode multipart: %w", err)
			}
			if _, err := io.Copy(part, b.File); err != nil {
				return nil, "", fmt.Errorf("read upload: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("encode multipart: %w", err)
		}
		return &buf, w.FormDataContentType(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

type errorBody struct {
	Code    json.RawMessage `json:"code"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// parseAPIError decodes {code, error}, {code, message} or the backend's
// {detail: {code, message}}; anything else falls back to the HTTP status.
func parseAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status, Code: strconv.Itoa(status), Message: http.StatusText(status)}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}

	if len(body.Detail) > 0 {
		var nested errorBody
		if err := json.Unmarshal(body.Detail, &nested); err == nil {
			body.Code, body.Error, body.Message = firstRaw(body.Code, nested.Code), firstOf(body.Error, nested.Error), firstOf(body.Message, nested.Message)
		} else {
			var text string
			if err := json.Unmarshal(body.Detail, &text); err == nil {
				body.Message = firstOf(body.Message, text)
			}
		}
	}

	if code := rawCode(body.Code); code != "" {
		apiErr.Code = code
	}
	if msg := firstOf(body.Error, body.Message); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstRaw(a, b json.RawMessage) json.RawMessage {
	if len(a) > 0 && string(a) != "null" {
		return a
	}
	return b
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
