package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/dmitrijs2005/syncbridge/internal/client/tokenstore"
	"github.com/dmitrijs2005/syncbridge/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth is a scripted AuthAPI.
type fakeAuth struct {
	LoginRet models.LoginResult
	LoginErr error
	MeRet    models.User
	MeErr    error

	LastLoginEmail    string
	LastLoginPassword string
	LastMeToken       string
	MeCalls           int
	RegisterCalls     int
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (models.LoginResult, error) {
	f.LastLoginEmail, f.LastLoginPassword = email, password
	return f.LoginRet, f.LoginErr
}

func (f *fakeAuth) Me(_ context.Context, token string) (models.User, error) {
	f.MeCalls++
	f.LastMeToken = token
	return f.MeRet, f.MeErr
}

func (f *fakeAuth) Register(context.Context, models.RegisterInput) (models.RegisterResult, error) {
	f.RegisterCalls++
	return models.RegisterResult{Status: "success"}, nil
}

func (f *fakeAuth) Reactivate(context.Context, models.ReactivateInput) (models.RegisterResult, error) {
	return models.RegisterResult{Status: "success"}, nil
}

// failingStore fails every call with Err.
type failingStore struct{ Err error }

func (s failingStore) Get(context.Context) (string, error) { return "", s.Err }
func (s failingStore) Set(context.Context, string) error   { return s.Err }
func (s failingStore) Clear(context.Context) error         { return s.Err }

func recordStates(s *SessionController) *[]SessionState {
	var states []SessionState
	s.Subscribe(func(ch SessionChange) { states = append(states, ch.State) })
	return &states
}

func TestLogin_PersistsTokenAndAuthenticates(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{
		LoginRet: models.LoginResult{AccessToken: "T", Role: models.RoleClient},
		MeRet:    models.User{ID: 7, Email: "a@b.com", Role: models.RoleClient},
	}
	store := tokenstore.NewMemoryStore("")
	s := NewSessionController(auth, store, nil)
	states := recordStates(s)

	sess, err := s.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", auth.LastLoginEmail)
	assert.Equal(t, "x", auth.LastLoginPassword)
	assert.Equal(t, "T", auth.LastMeToken)

	tok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T", tok)

	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, models.RoleClient, sess.Role)
	assert.Equal(t, "T", s.Token())
	assert.True(t, sess.ExpiresAt.IsZero(), "opaque token has no expiry")
	assert.Equal(t, []SessionState{Authenticated}, *states)
}

func TestLogin_ProfileFailureFallsBackToLoginPayload(t *testing.T) {
	auth := &fakeAuth{
		LoginRet: models.LoginResult{AccessToken: "T", Role: models.RoleDeveloper},
		MeErr:    client.ErrUnavailable,
	}
	s := NewSessionController(auth, tokenstore.NewMemoryStore(""), nil)

	sess, err := s.Login(context.Background(), "dev@x", "p")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDeveloper, sess.Role)
	assert.Equal(t, "dev@x", sess.Email)
	assert.Equal(t, Authenticated, s.State())
}

func TestLogin_ProfileAuthFailureInvalidates(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{
		LoginRet: models.LoginResult{AccessToken: "T", Role: models.RoleClient},
		MeErr:    &client.APIError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED"},
	}
	store := tokenstore.NewMemoryStore("")
	s := NewSessionController(auth, store, nil)

	_, err := s.Login(ctx, "a@b.com", "x")
	require.ErrorIs(t, err, client.ErrUnauthorized)

	tok, _ := store.Get(ctx)
	assert.Empty(t, tok)
	assert.Equal(t, Unauthenticated, s.State())
	assert.Empty(t, s.Token())
}

func TestLogin_Failure_LeavesStateUntouched(t *testing.T) {
	auth := &fakeAuth{LoginErr: client.ErrUnauthorized}
	s := NewSessionController(auth, tokenstore.NewMemoryStore(""), nil)

	_, err := s.Login(context.Background(), "a@b.com", "bad")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, Unauthenticated, s.State())
	assert.Zero(t, auth.MeCalls)
}

func TestLogin_StoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	auth := &fakeAuth{LoginRet: models.LoginResult{AccessToken: "T"}}
	s := NewSessionController(auth, failingStore{Err: boom}, nil)

	_, err := s.Login(context.Background(), "a@b.com", "x")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Unauthenticated, s.State())
}

func TestRestore_NoCachedToken(t *testing.T) {
	auth := &fakeAuth{}
	s := NewSessionController(auth, tokenstore.NewMemoryStore(""), nil)

	require.NoError(t, s.Restore(context.Background()))
	assert.Equal(t, Unauthenticated, s.State())
	assert.Zero(t, auth.MeCalls)
}

func TestRestore_AuthFailureClearsCache(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{MeErr: &client.APIError{Status: http.StatusUnauthorized}}
	store := tokenstore.NewMemoryStore("stale")
	s := NewSessionController(auth, store, nil)
	states := recordStates(s)

	err := s.Restore(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	tok, _ := store.Get(ctx)
	assert.Empty(t, tok)
	assert.Equal(t, Unauthenticated, s.State())
	_, ok := s.Session()
	assert.False(t, ok)
	assert.Equal(t, []SessionState{Restoring, Unauthenticated}, *states)
}

func TestRestore_AnyFailureClearsCache(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore("cached")
	s := NewSessionController(&fakeAuth{MeErr: client.ErrUnavailable}, store, nil)

	require.ErrorIs(t, s.Restore(ctx), client.ErrUnavailable)
	tok, _ := store.Get(ctx)
	assert.Empty(t, tok)
	assert.Equal(t, Unauthenticated, s.State())
}

func TestRestore_StoreReadFailure(t *testing.T) {
	boom := errors.New("locked")
	s := NewSessionController(&fakeAuth{}, failingStore{Err: boom}, nil)

	require.ErrorIs(t, s.Restore(context.Background()), boom)
	assert.Equal(t, Unauthenticated, s.State())
}

func TestSession_AgainstBackend(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	sess, err := b.session.Login(ctx, fakeapi.DemoClientEmail, fakeapi.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, demoClientID, sess.ID)
	assert.Equal(t, "Demo Client", sess.DisplayName)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), sess.ExpiresAt, time.Minute)

	// a fresh controller over the same store resumes the session
	again := NewSessionController(b.api.Auth, b.store, nil)
	require.NoError(t, again.Restore(ctx))
	assert.Equal(t, Authenticated, again.State())
	assert.Equal(t, sess.Token, again.Token())

	// the account disappears: the cached token no longer restores
	b.fake.DeleteUser(demoClientID)
	third := NewSessionController(b.api.Auth, b.store, nil)
	require.ErrorIs(t, third.Restore(ctx), client.ErrUnauthorized)
	tok, _ := b.store.Get(ctx)
	assert.Empty(t, tok)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore("")
	s := NewSessionController(&fakeAuth{LoginRet: models.LoginResult{AccessToken: "T"}}, store, nil)
	_, err := s.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))
	tok, _ := store.Get(ctx)
	assert.Empty(t, tok)
	assert.Equal(t, Unauthenticated, s.State())
	assert.Empty(t, s.Token())
}

func TestInvalidate_NotifiesWithCause(t *testing.T) {
	ctx := context.Background()
	s := NewSessionController(&fakeAuth{LoginRet: models.LoginResult{AccessToken: "T"}}, tokenstore.NewMemoryStore(""), nil)
	_, err := s.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)

	var got []SessionChange
	s.Subscribe(func(ch SessionChange) { got = append(got, ch) })

	s.Invalidate(ctx, client.ErrUnauthorized)
	s.Invalidate(ctx, client.ErrUnauthorized)

	require.Len(t, got, 1, "second invalidation is not a transition")
	assert.Equal(t, Unauthenticated, got[0].State)
	assert.Nil(t, got[0].Session)
	assert.ErrorIs(t, got[0].Cause, client.ErrUnauthorized)
}

func TestSubscribe_CancelAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewSessionController(&fakeAuth{LoginRet: models.LoginResult{AccessToken: "T"}}, tokenstore.NewMemoryStore(""), nil)

	var order []string
	s.Subscribe(func(SessionChange) { order = append(order, "first") })
	cancel := s.Subscribe(func(SessionChange) { order = append(order, "second") })
	s.Subscribe(func(SessionChange) { order = append(order, "third") })

	_, err := s.Login(ctx, "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	cancel()
	cancel()
	order = nil
	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestSubscriber_SeesSessionCopy(t *testing.T) {
	s := NewSessionController(&fakeAuth{
		LoginRet: models.LoginResult{AccessToken: "T"},
		MeRet:    models.User{ID: 1, Email: "a@b.com"},
	}, tokenstore.NewMemoryStore(""), nil)

	s.Subscribe(func(ch SessionChange) {
		if ch.Session != nil {
			ch.Session.Token = "tampered"
		}
	})
	_, err := s.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "T", s.Token())
}

func TestRegister_NeverLogsIn(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	res, err := b.session.Register(ctx, models.RegisterInput{
		Email:       "new@x",
		Password:    "pw",
		DisplayName: "New",
		LicenseKey:  fakeapi.DemoLicenseKey,
	})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.NotZero(t, res.UserID)

	assert.Equal(t, Unauthenticated, b.session.State())
	tok, _ := b.store.Get(ctx)
	assert.Empty(t, tok)

	// the license is consumed, so a second registration fails
	_, err = b.session.Register(ctx, models.RegisterInput{
		Email: "other@x", Password: "pw", DisplayName: "O", LicenseKey: fakeapi.DemoLicenseKey,
	})
	require.Error(t, err)
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "restoring", Restoring.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
