package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type AdminsStore interface {
	CreateAdmin(ctx context.Context, a *Administrator) (int64, error)
	GetAdmin(ctx context.Context, id int64) (*Administrator, error)
	GetAdminByEmail(ctx context.Context, email string) (*Administrator, error)
}

type adminsStore struct {
	db *sql.DB
}

func NewAdminsStore(db *sql.DB) AdminsStore {
	return &adminsStore{db: db}
}

func (s *adminsStore) CreateAdmin(ctx context.Context, a *Administrator) (int64, error) {
	if strings.TrimSpace(a.Role) == "" {
		a.Role = RoleReviewer
	}
	if a.DateAssigned.IsZero() {
		a.DateAssigned = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO administrators(name, role, contact_email, password_hash, date_assigned)
		VALUES(?,?,?,?,?)`,
		strings.TrimSpace(a.Name), a.Role, normalizeEmail(a.ContactEmail), a.PasswordHash, a.DateAssigned)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	a.ID = id
	return id, nil
}

func (s *adminsStore) GetAdmin(ctx context.Context, id int64) (*Administrator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, contact_email, password_hash, date_assigned
		FROM administrators WHERE id=?`, id)
	return scanAdmin(row)
}

func (s *adminsStore) GetAdminByEmail(ctx context.Context, email string) (*Administrator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, contact_email, password_hash, date_assigned
		FROM administrators WHERE contact_email=?`, normalizeEmail(email))
	return scanAdmin(row)
}

func scanAdmin(row *sql.Row) (*Administrator, error) {
	var a Administrator
	err := row.Scan(&a.ID, &a.Name, &a.Role, &a.ContactEmail, &a.PasswordHash, &a.DateAssigned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
