// Package fakeapi is an in-memory SyncBridge backend. It serves the same
// REST routes and websocket feed as the real service, records every call
// and can be told to fail specific routes. It backs the controller tests
// and the mock-server command.
package fakeapi

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/gin-gonic/gin"
)

// Call is one request seen by the server.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	// Body is the raw JSON body; empty for multipart requests.
	Body []byte
	// Form holds the plain fields of a multipart request.
	Form url.Values
}

type failure struct {
	method, path string
	status       int
	code, msg    string
	remaining    int // < 0 means forever
}

type user struct {
	ID          int64
	Email       string
	Password    string
	DisplayName string
	Role        models.Role
}

type block struct {
	ID     int64
	Key    models.ThreadKey
	Status models.BlockStatus
}

type storedMessage struct {
	models.Message
	Key models.ThreadKey
}

type Server struct {
	mu sync.Mutex

	secret   []byte
	tokenTTL time.Duration
	engine   *gin.Engine
	hub      *hub

	nextID       int64
	users        map[int64]*user
	licenses     map[string]bool
	forms        map[int64]*models.Form
	functions    map[int64]*models.Function
	nonfunctions map[int64]*models.Nonfunction
	blocks       map[models.ThreadKey]*block
	messages     []*storedMessage
	files        map[int64]*models.Attachment

	calls    []Call
	failures []*failure
}

type Option func(*Server)

// WithSecret sets the HMAC key used to sign tokens.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithLogger logs every request to w in gin's format.
func WithLogger(w io.Writer) Option {
	return func(s *Server) { s.engine.Use(gin.LoggerWithWriter(w)) }
}

func New(opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		secret:       []byte("syncbridge-fake-secret"),
		tokenTTL:     24 * time.Hour,
		engine:       gin.New(),
		hub:          newHub(),
		users:        map[int64]*user{},
		licenses:     map[string]bool{},
		forms:        map[int64]*models.Form{},
		functions:    map[int64]*models.Function{},
		nonfunctions: map[int64]*models.Nonfunction{},
		blocks:       map[models.ThreadKey]*block{},
		files:        map[int64]*models.Attachment{},
	}
	s.engine.Use(gin.Recovery())
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler serving the backend.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(s.record)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	v1 := r.Group("/api/v1")
	v1.POST("/auth/register", s.register)
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/reactivate", s.reactivate)
	v1.GET("/ws", s.serveWS)

	protected := v1.Group("")
	protected.Use(s.requireAuth)
	protected.GET("/auth/me", s.me)

	protected.GET("/forms", s.listForms)
	protected.GET("/form/:id", s.getForm)
	protected.POST("/form", s.createForm)
	protected.PUT("/form/:id", s.updateForm)
	protected.DELETE("/form/:id", s.deleteForm)
	protected.POST("/form/:id/subform", s.createSubform)
	protected.POST("/form/:id/subform/merge", s.mergeSubform)
	protected.PUT("/form/:id/status", s.updateStatus)
	protected.POST("/form/:id/complete", s.completeForm)
	protected.POST("/form/:id/accept-negotiation", s.acceptNegotiation)

	protected.GET("/functions", s.listFunctions)
	protected.POST("/function", s.createFunction)
	protected.PUT("/function/:id", s.updateFunction)
	protected.DELETE("/function/:id", s.deleteFunction)

	protected.GET("/nonfunctions", s.listNonfunctions)
	protected.POST("/nonfunction", s.createNonfunction)
	protected.PUT("/nonfunction/:id", s.updateNonfunction)
	protected.DELETE("/nonfunction/:id", s.deleteNonfunction)

	protected.GET("/messages", s.listMessages)
	protected.POST("/message", s.createMessage)
	protected.PUT("/message/:id", s.updateMessage)
	protected.DELETE("/message/:id", s.deleteMessage)

	protected.POST("/file", s.uploadFile)
	protected.GET("/file/:id", s.getFile)
	protected.DELETE("/file/:id", s.deleteFile)

	r.PUT("/block/:id/status", s.requireAuth, s.updateBlockStatus)
}

// record appends the request to the call log and applies injected failures.
func (s *Server) record(c *gin.Context) {
	call := Call{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
	}
	if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
		b, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(b))
		call.Body = b
	}

	s.mu.Lock()
	idx := len(s.calls)
	s.calls = append(s.calls, call)
	f := s.takeFailure(call.Method, call.Path)
	s.mu.Unlock()

	if f != nil {
		fail(c, f.status, f.code, f.msg)
		return
	}

	c.Next()

	if mf := c.Request.MultipartForm; mf != nil {
		s.mu.Lock()
		s.calls[idx].Form = url.Values(mf.Value)
		s.mu.Unlock()
	}
}

func (s *Server) takeFailure(method, path string) *failure {
	for i, f := range s.failures {
		if f.method != method || f.path != path {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
			if f.remaining == 0 {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
			}
		}
		return f
	}
	return nil
}

// FailNext makes the next request to method+path answer with the given
// error instead of reaching its handler.
func (s *Server) FailNext(method, path string, status int, code, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{method: method, path: path, status: status, code: code, msg: msg, remaining: 1})
}

// FailAlways is FailNext without a limit.
func (s *Server) FailAlways(method, path string, status int, code, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{method: method, path: path, status: status, code: code, msg: msg, remaining: -1})
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	s.failures = nil
	s.mu.Unlock()
}

// Calls returns a copy of the call log.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the logged calls matching method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

func ok(c *gin.Context, data any, msg string) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": msg, "data": data})
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": gin.H{"status": "error", "message": msg, "code": code}})
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05.000000")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
