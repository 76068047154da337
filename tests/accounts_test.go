package tests

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"phishnet/core/auth"
	"phishnet/core/store"
)

func TestVictimRegisterAndLogin(t *testing.T) {
	cfg, db, logger := setupDB(t)
	s := newServices(db, logger)
	accounts := auth.NewAccountsService(cfg, s.victims, s.admins, s.audits, logger)
	ctx := context.Background()

	v, err := accounts.RegisterVictim(ctx, "Ana", "Ana@Example.COM", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if v.ContactEmail != "ana@example.com" {
		t.Fatalf("email must be normalized, got %q", v.ContactEmail)
	}
	if !strings.HasPrefix(v.PasswordHash, "$argon2id$") {
		t.Fatalf("stored hash must be argon2id, got %q", v.PasswordHash)
	}

	got, err := accounts.LoginVictim(ctx, "ana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != v.ID {
		t.Fatalf("login resolved wrong account")
	}

	if _, err := accounts.LoginVictim(ctx, "ana@example.com", "wrong"); !errors.Is(err, auth.ErrBadCredentials) {
		t.Fatalf("wrong password must fail with bad credentials, got %v", err)
	}
	if _, err := accounts.LoginVictim(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, auth.ErrBadCredentials) {
		t.Fatalf("unknown email must fail with bad credentials, got %v", err)
	}
}

func TestDuplicateVictimEmailRejected(t *testing.T) {
	cfg, db, logger := setupDB(t)
	s := newServices(db, logger)
	accounts := auth.NewAccountsService(cfg, s.victims, s.admins, s.audits, logger)
	ctx := context.Background()

	if _, err := accounts.RegisterVictim(ctx, "Ana", "ana@example.com", "pass-one"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := accounts.RegisterVictim(ctx, "Imposter", "ANA@example.com", "pass-two"); err == nil {
		t.Fatalf("duplicate email must be rejected")
	}
}

func TestSuspendedVictimCannotLogin(t *testing.T) {
	cfg, db, logger := setupDB(t)
	s := newServices(db, logger)
	accounts := auth.NewAccountsService(cfg, s.victims, s.admins, s.audits, logger)
	ctx := context.Background()

	v, err := accounts.RegisterVictim(ctx, "Ben", "ben@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.victims.UpdateVictimStatus(ctx, v.ID, store.AccountSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := accounts.LoginVictim(ctx, "ben@example.com", "s3cret-pass"); err == nil {
		t.Fatalf("suspended account must not log in")
	}
}

func TestLegacyHashUpgradedOnLogin(t *testing.T) {
	cfg, db, logger := setupDB(t)
	s := newServices(db, logger)
	accounts := auth.NewAccountsService(cfg, s.victims, s.admins, s.audits, logger)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("old password"))
	v := &store.Victim{Name: "Old", ContactEmail: "old@example.com", PasswordHash: hex.EncodeToString(sum[:])}
	if _, err := s.victims.CreateVictim(ctx, v); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := accounts.LoginVictim(ctx, "old@example.com", "old password"); err != nil {
		t.Fatalf("legacy login: %v", err)
	}
	got, _ := s.victims.GetVictim(ctx, v.ID)
	if !strings.HasPrefix(got.PasswordHash, "$argon2id$") {
		t.Fatalf("legacy hash must be upgraded after login, got %q", got.PasswordHash)
	}
	// The upgraded hash must keep working.
	if _, err := accounts.LoginVictim(ctx, "old@example.com", "old password"); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestAdminLoginAndDefaultRole(t *testing.T) {
	cfg, db, logger := setupDB(t)
	s := newServices(db, logger)
	accounts := auth.NewAccountsService(cfg, s.victims, s.admins, s.audits, logger)
	ctx := context.Background()

	a, err := accounts.RegisterAdmin(ctx, "Reviewer", "rev@example.com", "", "hunter2-hunter2")
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if a.Role != store.RoleReviewer {
		t.Fatalf("blank role must default to %s, got %s", store.RoleReviewer, a.Role)
	}
	if _, err := accounts.LoginAdmin(ctx, "rev@example.com", "hunter2-hunter2"); err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if _, err := accounts.LoginAdmin(ctx, "rev@example.com", "bad"); !errors.Is(err, auth.ErrBadCredentials) {
		t.Fatalf("wrong admin password must fail, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	cfg, db, logger := setupDB(t)
	sessions := store.NewSessionsStore(db)
	mgr := auth.NewSessionManager(sessions, cfg, logger)
	ctx := context.Background()

	rec, err := mgr.Create(ctx, 7, auth.SubjectVictim)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("session must get an ID")
	}

	got, err := mgr.Resolve(ctx, rec.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.SubjectID != 7 || got.Kind != auth.SubjectVictim {
		t.Fatalf("resolved wrong session: %+v", got)
	}

	if err := mgr.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := mgr.Resolve(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted session must not resolve, got %v", err)
	}
}

func TestExpiredSessionResolvesNotFoundAndIsRemoved(t *testing.T) {
	cfg, db, logger := setupDB(t)
	sessions := store.NewSessionsStore(db)
	mgr := auth.NewSessionManager(sessions, cfg, logger)
	ctx := context.Background()

	past := time.Now().UTC().Add(-2 * time.Hour)
	rec := &store.SessionRecord{
		ID:         "expired-session",
		SubjectID:  1,
		Kind:       auth.SubjectAdmin,
		CreatedAt:  past,
		LastSeenAt: past,
		ExpiresAt:  past.Add(time.Hour),
	}
	if err := sessions.CreateSession(ctx, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := mgr.Resolve(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expired session must resolve as not found, got %v", err)
	}
	// Lazy expiry deletes the row.
	if _, err := sessions.GetSession(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expired session row must be deleted, got %v", err)
	}
}

func TestSweepRemovesOnlyExpiredSessions(t *testing.T) {
	cfg, db, logger := setupDB(t)
	sessions := store.NewSessionsStore(db)
	mgr := auth.NewSessionManager(sessions, cfg, logger)
	ctx := context.Background()

	now := time.Now().UTC()
	stale := &store.SessionRecord{
		ID: "stale", SubjectID: 1, Kind: auth.SubjectVictim,
		CreatedAt: now.Add(-3 * time.Hour), LastSeenAt: now.Add(-3 * time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	}
	if err := sessions.CreateSession(ctx, stale); err != nil {
		t.Fatalf("seed: %v", err)
	}
	live, err := mgr.Create(ctx, 2, auth.SubjectVictim)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mgr.Sweep(ctx, now)

	if _, err := sessions.GetSession(ctx, stale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("stale session must be swept, got %v", err)
	}
	if _, err := sessions.GetSession(ctx, live.ID); err != nil {
		t.Fatalf("live session must survive the sweep: %v", err)
	}
}
