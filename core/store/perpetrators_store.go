package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type PerpetratorsStore interface {
	// CreateOrUpdate resolves a perpetrator by its unique identifier:
	// an existing row gets its associated name and last incident date
	// refreshed, otherwise a fresh row is inserted at the default threat
	// level. Returns the row's ID either way.
	CreateOrUpdate(ctx context.Context, p *Perpetrator) (int64, error)
	GetPerpetrator(ctx context.Context, id int64) (*Perpetrator, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Perpetrator, error)
	ListPerpetrators(ctx context.Context) ([]Perpetrator, error)
	UpdateThreatLevel(ctx context.Context, id int64, level string) error
}

type perpetratorsStore struct {
	db *sql.DB
}

func NewPerpetratorsStore(db *sql.DB) PerpetratorsStore {
	return &perpetratorsStore{db: db}
}

func (s *perpetratorsStore) CreateOrUpdate(ctx context.Context, p *Perpetrator) (int64, error) {
	identifier := strings.TrimSpace(p.Identifier)
	if identifier == "" {
		return 0, errors.New("perpetrator identifier is required")
	}
	if p.LastIncidentDate.IsZero() {
		p.LastIncidentDate = time.Now().UTC()
	}
	existing, err := s.FindByIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if existing != nil {
		name := strings.TrimSpace(p.AssociatedName)
		if name == "" {
			name = existing.AssociatedName
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE perpetrators SET associated_name=?, last_incident_date=? WHERE id=?`,
			name, p.LastIncidentDate, existing.ID); err != nil {
			return 0, err
		}
		p.ID = existing.ID
		p.ThreatLevel = existing.ThreatLevel
		return existing.ID, nil
	}
	if strings.TrimSpace(p.ThreatLevel) == "" {
		p.ThreatLevel = ThreatUnderReview
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO perpetrators(identifier, identifier_type, associated_name, threat_level, last_incident_date)
		VALUES(?,?,?,?,?)`,
		identifier, strings.TrimSpace(p.IdentifierType), strings.TrimSpace(p.AssociatedName), p.ThreatLevel, p.LastIncidentDate)
	if err != nil {
		// A concurrent insert can win the unique identifier race; retry
		// as an update exactly once.
		raced, ferr := s.FindByIdentifier(ctx, identifier)
		if ferr != nil {
			return 0, err
		}
		if _, uerr := s.db.ExecContext(ctx, `
			UPDATE perpetrators SET associated_name=?, last_incident_date=? WHERE id=?`,
			strings.TrimSpace(p.AssociatedName), p.LastIncidentDate, raced.ID); uerr != nil {
			return 0, uerr
		}
		p.ID = raced.ID
		p.ThreatLevel = raced.ThreatLevel
		return raced.ID, nil
	}
	id, _ := res.LastInsertId()
	p.ID = id
	return id, nil
}

func (s *perpetratorsStore) GetPerpetrator(ctx context.Context, id int64) (*Perpetrator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identifier, identifier_type, associated_name, threat_level, last_incident_date
		FROM perpetrators WHERE id=?`, id)
	return scanPerpetrator(row)
}

func (s *perpetratorsStore) FindByIdentifier(ctx context.Context, identifier string) (*Perpetrator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identifier, identifier_type, associated_name, threat_level, last_incident_date
		FROM perpetrators WHERE identifier=?`, strings.TrimSpace(identifier))
	return scanPerpetrator(row)
}

func (s *perpetratorsStore) ListPerpetrators(ctx context.Context) ([]Perpetrator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identifier, identifier_type, associated_name, threat_level, last_incident_date
		FROM perpetrators ORDER BY last_incident_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Perpetrator
	for rows.Next() {
		var p Perpetrator
		if err := rows.Scan(&p.ID, &p.Identifier, &p.IdentifierType, &p.AssociatedName, &p.ThreatLevel, &p.LastIncidentDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *perpetratorsStore) UpdateThreatLevel(ctx context.Context, id int64, level string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE perpetrators SET threat_level=? WHERE id=?`, level, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPerpetrator(row *sql.Row) (*Perpetrator, error) {
	var p Perpetrator
	err := row.Scan(&p.ID, &p.Identifier, &p.IdentifierType, &p.AssociatedName, &p.ThreatLevel, &p.LastIncidentDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
