package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/dmitrijs2005/syncbridge/internal/client/tokenstore"
	"github.com/dmitrijs2005/syncbridge/internal/logging"
)

// AuthAPI is the part of the backend the session talks to.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (models.LoginResult, error)
	Me(ctx context.Context, token string) (models.User, error)
	Register(ctx context.Context, in models.RegisterInput) (models.RegisterResult, error)
	Reactivate(ctx context.Context, in models.ReactivateInput) (models.RegisterResult, error)
}

type SessionState int

const (
	Unauthenticated SessionState = iota
	Restoring
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// SessionChange is delivered to subscribers after every state transition.
type SessionChange struct {
	State SessionState
	// Session is nil unless State is Authenticated.
	Session *models.Session
	// Cause is set when the session was invalidated by a failed call.
	Cause error
}

// SessionController owns the authenticated identity and its persisted token.
type SessionController struct {
	api    AuthAPI
	store  tokenstore.Store
	logger logging.Logger

	mu      sync.Mutex
	state   SessionState
	current *models.Session
	subs    map[int]func(SessionChange)
	nextSub int
}

func NewSessionController(api AuthAPI, store tokenstore.Store, logger logging.Logger) *SessionController {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SessionController{
		api:    api,
		store:  store,
		logger: logger,
		subs:   make(map[int]func(SessionChange)),
	}
}

func (s *SessionController) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a copy of the current identity.
func (s *SessionController) Session() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated || s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

// Token implements AuthGuard. A token being restored is not handed out.
func (s *SessionController) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated || s.current == nil {
		return ""
	}
	return s.current.Token
}

// Subscribe registers fn for state changes. Callbacks run in registration
// order, outside the controller lock. The returned func unregisters fn.
func (s *SessionController) Subscribe(fn func(SessionChange)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// transition must be called without s.mu held.
func (s *SessionController) transition(state SessionState, sess *models.Session, cause error) {
	s.mu.Lock()
	changed := s.state != state || s.current != sess
	s.state = state
	s.current = sess
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(SessionChange), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	ev := SessionChange{State: state, Cause: cause}
	if sess != nil {
		cp := *sess
		ev.Session = &cp
	}
	for _, fn := range fns {
		fn(ev)
	}
}

func newSession(user models.User, token string) *models.Session {
	sess := &models.Session{User: user, Token: token}
	if claims, err := client.ParseTokenClaims(token); err == nil {
		sess.ExpiresAt = claims.ExpiresAt
	}
	return sess
}

// Restore resumes a session from the persisted token. Any failure to confirm
// the token with the backend discards it.
func (s *SessionController) Restore(ctx context.Context) error {
	token, err := s.store.Get(ctx)
	if err != nil {
		s.transition(Unauthenticated, nil, nil)
		return err
	}
	if token == "" {
		s.transition(Unauthenticated, nil, nil)
		return nil
	}

	s.transition(Restoring, nil, nil)

	user, err := s.api.Me(ctx, token)
	if err != nil {
		s.logger.Info(ctx, "cached session rejected", "error", err)
		if cerr := s.store.Clear(ctx); cerr != nil {
			s.logger.Error(ctx, "clear token", "error", cerr)
		}
		s.transition(Unauthenticated, nil, err)
		return err
	}

	sess := newSession(user, token)
	s.transition(Authenticated, sess, nil)
	s.logger.Info(ctx, "session restored", "user_id", user.ID, "role", user.Role)
	return nil
}

// Login authenticates, persists the token and loads the full profile.
func (s *SessionController) Login(ctx context.Context, email, password string) (models.Session, error) {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}

	if err := s.store.Set(ctx, res.AccessToken); err != nil {
		return models.Session{}, fmt.Errorf("save token: %w", err)
	}

	user, err := s.api.Me(ctx, res.AccessToken)
	switch {
	case err == nil:
	case client.IsAuthError(err):
		s.Invalidate(ctx, err)
		return models.Session{}, err
	default:
		s.logger.Warn(ctx, "profile unavailable, using login payload", "error", err)
		user = models.User{Email: email, Role: res.Role}
	}

	sess := newSession(user, res.AccessToken)
	s.transition(Authenticated, sess, nil)
	s.logger.Info(ctx, "logged in", "user_id", user.ID, "role", user.Role)
	return *sess, nil
}

// Logout forgets the session locally; the backend keeps no session state.
func (s *SessionController) Logout(ctx context.Context) error {
	err := s.store.Clear(ctx)
	s.transition(Unauthenticated, nil, nil)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	s.logger.Info(ctx, "logged out")
	return nil
}

// Invalidate implements AuthGuard.
func (s *SessionController) Invalidate(ctx context.Context, cause error) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error(ctx, "clear token", "error", err)
	}
	if s.State() != Unauthenticated {
		s.logger.Info(ctx, "session invalidated", "cause", cause)
	}
	s.transition(Unauthenticated, nil, cause)
}

// Register creates an account. It never logs in.
func (s *SessionController) Register(ctx context.Context, in models.RegisterInput) (models.RegisterResult, error) {
	return s.api.Register(ctx, in)
}

// Reactivate renews an expired license. It never logs in.
func (s *SessionController) Reactivate(ctx context.Context, in models.ReactivateInput) (models.RegisterResult, error) {
	return s.api.Reactivate(ctx, in)
}
