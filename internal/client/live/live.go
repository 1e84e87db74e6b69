// Package live subscribes to the backend's websocket feed of thread
// changes.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/dmitrijs2005/syncbridge/internal/logging"
	"github.com/gorilla/websocket"
)

// Event is one feed notification.
type Event struct {
	// Type is "message" for thread changes and "presence" for join/leave.
	Type   string `json:"type"`
	Action string `json:"action"`
	// Message is set for create and update.
	Message *models.Message `json:"message,omitempty"`
	// MessageID is set for delete.
	MessageID int64 `json:"message_id,omitempty"`
	UserID    int64 `json:"user_id,omitempty"`
}

// Changed reports whether the event affects the thread contents.
func (e Event) Changed() bool {
	return e.Type == "message"
}

type Dialer struct {
	base      *url.URL
	ws        *websocket.Dialer
	logger    logging.Logger
	pingEvery time.Duration
}

type Option func(*Dialer)

func WithLogger(l logging.Logger) Option {
	return func(d *Dialer) { d.logger = l }
}

// WithPingInterval sets how often a keep-alive ping is sent. Zero disables
// pings.
func WithPingInterval(every time.Duration) Option {
	return func(d *Dialer) { d.pingEvery = every }
}

// NewDialer derives the feed endpoint from the REST base URL
// (http -> ws, https -> wss).
func NewDialer(baseURL *url.URL, opts ...Option) *Dialer {
	u := *baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/ws"
	d := &Dialer{
		base:      &u,
		ws:        &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		logger:    logging.Discard(),
		pingEvery: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dialer) endpoint(token string, key models.ThreadKey) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("form_id", fmt.Sprint(key.FormID))
	if key.FunctionID != 0 {
		q.Set("function_id", fmt.Sprint(key.FunctionID))
	}
	if key.NonfunctionID != 0 {
		q.Set("nonfunction_id", fmt.Sprint(key.NonfunctionID))
	}
	u := *d.base
	u.RawQuery = q.Encode()
	return u.String()
}

// Subscribe connects to the feed of key. The returned channel is closed
// when ctx ends or the connection drops; the error that ended it is then
// available from the Subscription.
func (d *Dialer) Subscribe(ctx context.Context, token string, key models.ThreadKey) (*Subscription, error) {
	if token == "" {
		return nil, client.ErrNotLoggedIn
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", client.ErrInvalidArgument, err)
	}

	conn, resp, err := d.ws.DialContext(ctx, d.endpoint(token, key), nil)
	if err != nil {
		return nil, handshakeError(resp, err)
	}

	sub := &Subscription{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go sub.run(ctx, conn, d.logger.With("room", key.Room()), d.pingEvery)
	return sub, nil
}

func handshakeError(resp *http.Response, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if resp != nil {
		return &client.APIError{Status: resp.StatusCode, Code: fmt.Sprint(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
	}
	return fmt.Errorf("%w: %v", client.ErrUnavailable, err)
}

// Subscription is a live feed connection.
type Subscription struct {
	events chan Event
	done   chan struct{}
	err    error
}

// Events yields feed events until the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err returns why the subscription ended: nil for a context cancellation or
// a normal close, client.ErrUnauthorized for a rejected token. It blocks
// until the Events channel is closed.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

func (s *Subscription) run(ctx context.Context, conn *websocket.Conn, log logging.Logger, pingEvery time.Duration) {
	defer close(s.done)
	defer close(s.events)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		var tick <-chan time.Time
		if pingEvery > 0 {
			t := time.NewTicker(pingEvery)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-stop:
				_ = conn.Close()
				return
			case <-tick:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.err = readError(ctx, err)
			if s.err != nil {
				log.Warn(ctx, "live feed closed", "error", s.err)
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Debug(ctx, "skip malformed feed event", "error", err)
			continue
		}
		if ev.Type == "pong" {
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case websocket.ClosePolicyViolation:
			return fmt.Errorf("%w: %s", client.ErrUnauthorized, ce.Text)
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			return nil
		}
	}
	return fmt.Errorf("%w: %v", client.ErrUnavailable, err)
}
