package auth

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"phishnet/config"
	"phishnet/core/store"
	"phishnet/core/utils"
)

// Subject kinds a session can belong to.
const (
	SubjectVictim = "victim"
	SubjectAdmin  = "admin"
)

type contextKey string

// SessionContextKey carries the resolved *store.SessionRecord through
// request contexts.
const SessionContextKey contextKey = "phishnet.session"

type SessionManager struct {
	store  store.SessionsStore
	cfg    *config.AppConfig
	logger *utils.Logger
}

func NewSessionManager(store store.SessionsStore, cfg *config.AppConfig, logger *utils.Logger) *SessionManager {
	return &SessionManager{store: store, cfg: cfg, logger: logger}
}

func (m *SessionManager) Create(ctx context.Context, subjectID int64, kind string) (*store.SessionRecord, error) {
	now := utils.NowUTC()
	rec := &store.SessionRecord{
		ID:         uuid.Must(uuid.NewV4()).String(),
		SubjectID:  subjectID,
		Kind:       kind,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.cfg.EffectiveSessionTTL()),
	}
	if err := m.store.CreateSession(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Resolve returns the live session for an ID, expiring it lazily.
func (m *SessionManager) Resolve(ctx context.Context, id string) (*store.SessionRecord, error) {
	rec, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	now := utils.NowUTC()
	if now.After(rec.ExpiresAt) {
		_ = m.store.DeleteSession(ctx, id)
		return nil, store.ErrNotFound
	}
	if err := m.store.TouchSession(ctx, id, now); err != nil {
		m.logger.Errorf("session touch %s: %v", id, err)
	}
	return rec, nil
}

func (m *SessionManager) Delete(ctx context.Context, id string) error {
	return m.store.DeleteSession(ctx, id)
}

// Sweep removes expired sessions; run from the retention scheduler.
func (m *SessionManager) Sweep(ctx context.Context, now time.Time) {
	n, err := m.store.DeleteExpired(ctx, now)
	if err != nil {
		m.logger.Errorf("session sweep: %v", err)
		return
	}
	if n > 0 {
		m.logger.Printf("session sweep removed %d expired sessions", n)
	}
}
