// Package tokenstore persists the bearer token between client runs.
//
// The token is an opaque string: it is stored and returned verbatim and is
// never validated here. An empty string means no token is cached.
package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/syncbridge/internal/dbx"
)

const (
	KeyToken   = "access_token"
	KeySavedAt = "access_token_saved_at"
)

type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// SQLiteStore keeps the token in the metadata table of the local database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context) (string, error) {
	token, err := metadata.NewSQLiteRepository(s.db).Get(ctx, KeyToken)
	if errors.Is(err, metadata.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// Set stores token and the time it was saved in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, token string) error {
	savedAt := s.now().UTC().Format(time.RFC3339)
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyToken, token); err != nil {
			return err
		}
		return repo.Set(ctx, KeySavedAt, savedAt)
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, KeyToken, KeySavedAt)
	})
}

// SavedAt reports when the current token was stored. The zero time means
// no token is cached.
func (s *SQLiteStore) SavedAt(ctx context.Context) (time.Time, error) {
	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, KeySavedAt)
	if errors.Is(err, metadata.ErrKeyNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	return m.Set(context.Background(), "")
}
