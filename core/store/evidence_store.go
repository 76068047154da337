package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type EvidenceStore interface {
	AddEvidence(ctx context.Context, e *Evidence) (int64, error)
	GetEvidence(ctx context.Context, id int64) (*Evidence, error)
	ListPendingEvidence(ctx context.Context) ([]Evidence, error)
	ListEvidenceByIncident(ctx context.Context, incidentID int64) ([]Evidence, error)
	UpdateEvidenceStatus(ctx context.Context, id int64, status string, adminID int64) error
	DeleteEvidence(ctx context.Context, id int64) error
}

type evidenceStore struct {
	db *sql.DB
}

func NewEvidenceStore(db *sql.DB) EvidenceStore {
	return &evidenceStore{db: db}
}

func (s *evidenceStore) AddEvidence(ctx context.Context, e *Evidence) (int64, error) {
	if e.VerifiedStatus == "" {
		e.VerifiedStatus = EvidencePending
	}
	if e.SubmissionDate.IsZero() {
		e.SubmissionDate = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence_uploads(incident_id, evidence_type, file_path, submission_date, verified_status, admin_id)
		VALUES(?,?,?,?,?,?)`,
		e.IncidentID, e.EvidenceType, e.FilePath, e.SubmissionDate, e.VerifiedStatus, nullableID(e.AdminID))
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	e.ID = id
	return id, nil
}

func (s *evidenceStore) GetEvidence(ctx context.Context, id int64) (*Evidence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, incident_id, evidence_type, file_path, submission_date, verified_status, admin_id
		FROM evidence_uploads WHERE id=?`, id)
	var e Evidence
	var adminID sql.NullInt64
	err := row.Scan(&e.ID, &e.IncidentID, &e.EvidenceType, &e.FilePath, &e.SubmissionDate, &e.VerifiedStatus, &adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.AdminID = nullInt64Ptr(adminID)
	return &e, nil
}

func (s *evidenceStore) ListPendingEvidence(ctx context.Context) ([]Evidence, error) {
	return s.queryEvidence(ctx, `
		SELECT id, incident_id, evidence_type, file_path, submission_date, verified_status, admin_id
		FROM evidence_uploads WHERE verified_status=? ORDER BY submission_date`, EvidencePending)
}

func (s *evidenceStore) ListEvidenceByIncident(ctx context.Context, incidentID int64) ([]Evidence, error) {
	return s.queryEvidence(ctx, `
		SELECT id, incident_id, evidence_type, file_path, submission_date, verified_status, admin_id
		FROM evidence_uploads WHERE incident_id=? ORDER BY submission_date`, incidentID)
}

func (s *evidenceStore) queryEvidence(ctx context.Context, query string, args ...any) ([]Evidence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Evidence
	for rows.Next() {
		var e Evidence
		var adminID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.EvidenceType, &e.FilePath, &e.SubmissionDate, &e.VerifiedStatus, &adminID); err != nil {
			return nil, err
		}
		e.AdminID = nullInt64Ptr(adminID)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *evidenceStore) UpdateEvidenceStatus(ctx context.Context, id int64, status string, adminID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE evidence_uploads SET verified_status=?, admin_id=? WHERE id=?`, status, adminID, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *evidenceStore) DeleteEvidence(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence_uploads WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}
