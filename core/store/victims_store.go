package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type VictimsStore interface {
	CreateVictim(ctx context.Context, v *Victim) (int64, error)
	GetVictim(ctx context.Context, id int64) (*Victim, error)
	GetVictimByEmail(ctx context.Context, email string) (*Victim, error)
	ListVictims(ctx context.Context) ([]Victim, error)
	UpdateVictimStatus(ctx context.Context, id int64, status string) error
	UpdateVictimPassword(ctx context.Context, id int64, passwordHash string) error
}

type victimsStore struct {
	db *sql.DB
}

func NewVictimsStore(db *sql.DB) VictimsStore {
	return &victimsStore{db: db}
}

func (s *victimsStore) CreateVictim(ctx context.Context, v *Victim) (int64, error) {
	if strings.TrimSpace(v.AccountStatus) == "" {
		v.AccountStatus = AccountActive
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO victims(name, contact_email, password_hash, account_status, created_at)
		VALUES(?,?,?,?,?)`,
		strings.TrimSpace(v.Name), normalizeEmail(v.ContactEmail), v.PasswordHash, v.AccountStatus, v.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	v.ID = id
	return id, nil
}

func (s *victimsStore) GetVictim(ctx context.Context, id int64) (*Victim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_email, password_hash, account_status, created_at
		FROM victims WHERE id=?`, id)
	return scanVictim(row)
}

func (s *victimsStore) GetVictimByEmail(ctx context.Context, email string) (*Victim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_email, password_hash, account_status, created_at
		FROM victims WHERE contact_email=?`, normalizeEmail(email))
	return scanVictim(row)
}

func (s *victimsStore) ListVictims(ctx context.Context) ([]Victim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_email, password_hash, account_status, created_at
		FROM victims ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Victim
	for rows.Next() {
		var v Victim
		if err := rows.Scan(&v.ID, &v.Name, &v.ContactEmail, &v.PasswordHash, &v.AccountStatus, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *victimsStore) UpdateVictimStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE victims SET account_status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *victimsStore) UpdateVictimPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE victims SET password_hash=? WHERE id=?`, passwordHash, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVictim(row *sql.Row) (*Victim, error) {
	var v Victim
	err := row.Scan(&v.ID, &v.Name, &v.ContactEmail, &v.PasswordHash, &v.AccountStatus, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
