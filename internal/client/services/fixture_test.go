package services

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/syncbridge/internal/client/api"
	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/live"
	"github.com/dmitrijs2005/syncbridge/internal/client/tokenstore"
	"github.com/dmitrijs2005/syncbridge/internal/fakeapi"
	"github.com/stretchr/testify/require"
)

// backend wires the controllers to the fake backend over real HTTP.
type backend struct {
	fake    *fakeapi.Server
	http    *client.HTTPClient
	api     *api.API
	dialer  *live.Dialer
	store   *tokenstore.MemoryStore
	session *SessionController
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	fake := fakeapi.NewDemo()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	hc, err := client.NewHTTPClient(srv.URL)
	require.NoError(t, err)

	a := api.New(hc)
	store := tokenstore.NewMemoryStore("")
	return &backend{
		fake:    fake,
		http:    hc,
		api:     a,
		dialer:  live.NewDialer(hc.BaseURL(), live.WithPingInterval(0)),
		store:   store,
		session: NewSessionController(a.Auth, store, nil),
	}
}

func (b *backend) login(t *testing.T, email string) {
	t.Helper()
	_, err := b.session.Login(context.Background(), email, fakeapi.DemoPassword)
	require.NoError(t, err)
	b.fake.ResetCalls()
}

func (b *backend) forms(guard AuthGuard) *FormsController {
	return NewFormsController(b.api.Forms, b.api.Functions, b.api.Nonfunctions, guard, nil)
}

func (b *backend) thread(guard AuthGuard) *ThreadController {
	return NewThreadController(b.api.Messages, b.api.Files, guard, nil, 0)
}

// countingGuard hands out a fixed token and counts invalidations.
type countingGuard struct {
	mu     sync.Mutex
	token  string
	calls  int
	causes []error
}

func (g *countingGuard) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

func (g *countingGuard) Invalidate(_ context.Context, cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.causes = append(g.causes, cause)
	g.token = ""
}

func (g *countingGuard) Invalidations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Demo ids as seeded by fakeapi.NewDemo.
const (
	demoClientID  int64 = 1
	demoLandingID int64 = 3
	demoShopID    int64 = 4
	demoAppID     int64 = 8
)
