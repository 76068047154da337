package auth

import (
	"context"
	"errors"
	"strings"

	"phishnet/config"
	"phishnet/core/store"
	"phishnet/core/utils"
)

var ErrBadCredentials = errors.New("invalid email or password")

// AccountsService handles victim and administrator credentials. Login
// transparently upgrades legacy hashes to Argon2id.
type AccountsService struct {
	cfg     *config.AppConfig
	victims store.VictimsStore
	admins  store.AdminsStore
	audits  store.AuditStore
	logger  *utils.Logger
}

func NewAccountsService(cfg *config.AppConfig, victims store.VictimsStore, admins store.AdminsStore, audits store.AuditStore, logger *utils.Logger) *AccountsService {
	return &AccountsService{cfg: cfg, victims: victims, admins: admins, audits: audits, logger: logger}
}

func (s *AccountsService) RegisterVictim(ctx context.Context, name, email, password string) (*store.Victim, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	hash, err := HashPassword(password, s.cfg.Pepper)
	if err != nil {
		return nil, err
	}
	v := &store.Victim{Name: name, ContactEmail: email, PasswordHash: hash}
	if _, err := s.victims.CreateVictim(ctx, v); err != nil {
		return nil, err
	}
	if err := s.audits.LogAction(ctx, v.ContactEmail, "account.victim.register", ""); err != nil {
		s.logger.Errorf("audit victim register: %v", err)
	}
	return v, nil
}

func (s *AccountsService) LoginVictim(ctx context.Context, email, password string) (*store.Victim, error) {
	v, err := s.victims.GetVictimByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(password, v.PasswordHash, s.cfg.Pepper) {
		if err := s.audits.LogAction(ctx, v.ContactEmail, "account.victim.login_failed", ""); err != nil {
			s.logger.Errorf("audit login failure: %v", err)
		}
		return nil, ErrBadCredentials
	}
	if v.AccountStatus == store.AccountSuspended {
		return nil, errors.New("account suspended")
	}
	s.maybeRehashVictim(ctx, v, password)
	if err := s.audits.LogAction(ctx, v.ContactEmail, "account.victim.login", ""); err != nil {
		s.logger.Errorf("audit victim login: %v", err)
	}
	return v, nil
}

func (s *AccountsService) RegisterAdmin(ctx context.Context, name, email, role, password string) (*store.Administrator, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	hash, err := HashPassword(password, s.cfg.Pepper)
	if err != nil {
		return nil, err
	}
	a := &store.Administrator{Name: name, ContactEmail: email, Role: role, PasswordHash: hash}
	if _, err := s.admins.CreateAdmin(ctx, a); err != nil {
		return nil, err
	}
	if err := s.audits.LogAction(ctx, a.ContactEmail, "account.admin.register", "role="+a.Role); err != nil {
		s.logger.Errorf("audit admin register: %v", err)
	}
	return a, nil
}

func (s *AccountsService) LoginAdmin(ctx context.Context, email, password string) (*store.Administrator, error) {
	a, err := s.admins.GetAdminByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(password, a.PasswordHash, s.cfg.Pepper) {
		if err := s.audits.LogAction(ctx, a.ContactEmail, "account.admin.login_failed", ""); err != nil {
			s.logger.Errorf("audit login failure: %v", err)
		}
		return nil, ErrBadCredentials
	}
	if err := s.audits.LogAction(ctx, a.ContactEmail, "account.admin.login", ""); err != nil {
		s.logger.Errorf("audit admin login: %v", err)
	}
	return a, nil
}

// maybeRehashVictim upgrades a legacy SHA-256 credential in place after a
// successful login. Failure here never blocks the login itself.
func (s *AccountsService) maybeRehashVictim(ctx context.Context, v *store.Victim, password string) {
	if !NeedsRehash(v.PasswordHash) {
		return
	}
	hash, err := HashPassword(password, s.cfg.Pepper)
	if err != nil {
		s.logger.Errorf("rehash victim %d: %v", v.ID, err)
		return
	}
	if err := s.victims.UpdateVictimPassword(ctx, v.ID, hash); err != nil {
		s.logger.Errorf("rehash victim %d: %v", v.ID, err)
		return
	}
	v.PasswordHash = hash
	s.logger.Printf("upgraded legacy credential for victim %d", v.ID)
}
