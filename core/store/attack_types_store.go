package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type AttackTypesStore interface {
	ListAttackTypes(ctx context.Context) ([]AttackType, error)
	GetAttackType(ctx context.Context, id int64) (*AttackType, error)
	FindAttackTypeByName(ctx context.Context, name string) (*AttackType, error)
	CreateAttackType(ctx context.Context, at *AttackType) (int64, error)
}

type attackTypesStore struct {
	db *sql.DB
}

func NewAttackTypesStore(db *sql.DB) AttackTypesStore {
	return &attackTypesStore{db: db}
}

func (s *attackTypesStore) ListAttackTypes(ctx context.Context) ([]AttackType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, severity_level FROM attack_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttackType
	for rows.Next() {
		var at AttackType
		if err := rows.Scan(&at.ID, &at.Name, &at.Description, &at.SeverityLevel); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func (s *attackTypesStore) GetAttackType(ctx context.Context, id int64) (*AttackType, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, severity_level FROM attack_types WHERE id=?`, id)
	return scanAttackType(row)
}

func (s *attackTypesStore) FindAttackTypeByName(ctx context.Context, name string) (*AttackType, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, severity_level FROM attack_types WHERE name=?`, strings.TrimSpace(name))
	return scanAttackType(row)
}

func (s *attackTypesStore) CreateAttackType(ctx context.Context, at *AttackType) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attack_types(name, description, severity_level) VALUES(?,?,?)`,
		strings.TrimSpace(at.Name), at.Description, at.SeverityLevel)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	at.ID = id
	return id, nil
}

func scanAttackType(row *sql.Row) (*AttackType, error) {
	var at AttackType
	err := row.Scan(&at.ID, &at.Name, &at.Description, &at.SeverityLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}
