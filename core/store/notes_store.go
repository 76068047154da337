package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type NotesStore interface {
	// SaveNote upserts the single evaluation note a report carries.
	SaveNote(ctx context.Context, n *EvaluationNote) error
	GetNote(ctx context.Context, incidentID int64) (*EvaluationNote, error)
	DeleteNote(ctx context.Context, incidentID int64) error
}

type notesStore struct {
	db *sql.DB
}

func NewNotesStore(db *sql.DB) NotesStore {
	return &notesStore{db: db}
}

func (s *notesStore) SaveNote(ctx context.Context, n *EvaluationNote) error {
	n.LastUpdated = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE evaluation_notes SET notes=?, admin_id=?, last_updated=? WHERE incident_id=?`,
		n.Notes, nullableID(n.AdminID), n.LastUpdated, n.IncidentID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluation_notes(incident_id, notes, admin_id, last_updated) VALUES(?,?,?,?)`,
		n.IncidentID, n.Notes, nullableID(n.AdminID), n.LastUpdated)
	return err
}

func (s *notesStore) GetNote(ctx context.Context, incidentID int64) (*EvaluationNote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT incident_id, notes, admin_id, last_updated FROM evaluation_notes WHERE incident_id=?`, incidentID)
	var n EvaluationNote
	var adminID sql.NullInt64
	err := row.Scan(&n.IncidentID, &n.Notes, &adminID, &n.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n.AdminID = nullInt64Ptr(adminID)
	return &n, nil
}

func (s *notesStore) DeleteNote(ctx context.Context, incidentID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluation_notes WHERE incident_id=?`, incidentID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}
