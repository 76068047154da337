package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Archive reasons recorded when a reviewer rejects without giving one.
const (
	DefaultReportArchiveReason   = "Rejected from Pending Reports Review"
	DefaultEvidenceArchiveReason = "Rejected from Pending Evidence Review"
)

type RecycleBinStore interface {
	ArchiveReport(ctx context.Context, r *IncidentReport, rejectedBy int64, reason string) (int64, error)
	ArchiveEvidence(ctx context.Context, e *Evidence, rejectedBy int64, reason string) (int64, error)

	ListArchivedReports(ctx context.Context) ([]ArchivedReport, error)
	ListArchivedEvidence(ctx context.Context) ([]ArchivedEvidence, error)
	GetArchivedReport(ctx context.Context, binID int64) (*ArchivedReport, error)
	GetArchivedEvidence(ctx context.Context, binID int64) (*ArchivedEvidence, error)

	// RestoreReport puts the archived copy back into the active table and
	// removes the bin row, in one transaction. If the active row still
	// exists it is flipped back to the archived copy's original status;
	// that branch requires the row to still be Rejected, otherwise the
	// restore fails with ErrConflict.
	RestoreReport(ctx context.Context, binID int64) error
	// RestoreEvidence re-inserts a hard-deleted evidence row from its
	// archived copy and removes the bin row, in one transaction.
	RestoreEvidence(ctx context.Context, binID int64) error

	// PurgeOlderThan drops bin rows archived before the cutoff and
	// reports how many report and evidence rows went.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (reports int64, evidence int64, err error)
}

type recycleBinStore struct {
	db *sql.DB
}

func NewRecycleBinStore(db *sql.DB) RecycleBinStore {
	return &recycleBinStore{db: db}
}

func (s *recycleBinStore) ArchiveReport(ctx context.Context, r *IncidentReport, rejectedBy int64, reason string) (int64, error) {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReportArchiveReason
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recycle_bin_reports(incident_id, victim_id, perpetrator_id, attack_type_id, date_reported, description, original_status, admin_assigned_id, rejected_by_admin_id, archive_reason, archived_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.VictimID, r.PerpetratorID, r.AttackTypeID, r.DateReported, r.Description, r.Status, nullableID(r.AdminID), rejectedBy, reason, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	binID, _ := res.LastInsertId()
	return binID, nil
}

func (s *recycleBinStore) ArchiveEvidence(ctx context.Context, e *Evidence, rejectedBy int64, reason string) (int64, error) {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultEvidenceArchiveReason
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recycle_bin_evidence(evidence_id, incident_id, evidence_type, file_path, submission_date, original_status, admin_assigned_id, rejected_by_admin_id, archive_reason, archived_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.IncidentID, e.EvidenceType, e.FilePath, e.SubmissionDate, e.VerifiedStatus, nullableID(e.AdminID), rejectedBy, reason, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	binID, _ := res.LastInsertId()
	return binID, nil
}

func (s *recycleBinStore) ListArchivedReports(ctx context.Context) ([]ArchivedReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bin_id, incident_id, victim_id, perpetrator_id, attack_type_id, date_reported, description, original_status, admin_assigned_id, rejected_by_admin_id, archive_reason, archived_at
		FROM recycle_bin_reports ORDER BY archived_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArchivedReport
	for rows.Next() {
		var a ArchivedReport
		var assigned sql.NullInt64
		if err := rows.Scan(&a.BinID, &a.IncidentID, &a.VictimID, &a.PerpetratorID, &a.AttackTypeID, &a.DateReported, &a.Description, &a.OriginalStatus, &assigned, &a.RejectedByAdminID, &a.ArchiveReason, &a.ArchivedAt); err != nil {
			return nil, err
		}
		a.AdminAssignedID = nullInt64Ptr(assigned)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *recycleBinStore) ListArchivedEvidence(ctx context.Context) ([]ArchivedEvidence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bin_id, evidence_id, incident_id, evidence_type, file_path, submission_date, original_status, admin_assigned_id, rejected_by_admin_id, archive_reason, archived_at
		FROM recycle_bin_evidence ORDER BY archived_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArchivedEvidence
	for rows.Next() {
		var a ArchivedEvidence
		var assigned sql.NullInt64
		if err := rows.Scan(&a.BinID, &a.EvidenceID, &a.IncidentID, &a.EvidenceType, &a.FilePath, &a.SubmissionDate, &a.OriginalStatus, &assigned, &a.RejectedByAdminID, &a.ArchiveReason, &a.ArchivedAt); err != nil {
			return nil, err
		}
		a.AdminAssignedID = nullInt64Ptr(assigned)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *recycleBinStore) GetArchivedReport(ctx context.Context, binID int64) (*ArchivedReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT bin_id, incident_id, victim_id, perpetrator_id, attack_type_id, date_reported, description, original_status, admin_assigned_id, rejected_by_admin_id, archive_reason, archived_at
		FROM recycle_bin_reports WHERE bin_id=?`, binID)
	var a ArchivedReport
	var assigned sql.NullInt64
	err := row.Scan(&a.BinID, &a.IncidentID, &a.VictimID, &a.PerpetratorID, &a.AttackTypeID, &a.DateReported, &a.Description, &a.OriginalStatus, &assigned, &a.RejectedByAdminID, &a.ArchiveReason, &a.ArchivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.AdminAssignedID = nullInt64Ptr(assigned)
	return &a, nil
}

func (s *recycleBinStore) GetArchivedEvidence(ctx context.Context, binID int64) (*ArchivedEvidence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT bin_id, evidence_id, incident_id, evidence_type, file_path, submission_date, original_status, admin_assigned_id, rejected_by_admin_id, archive_reason, archived_at
		FROM recycle_bin_evidence WHERE bin_id=?`, binID)
	var a ArchivedEvidence
	var assigned sql.NullInt64
	err := row.Scan(&a.BinID, &a.EvidenceID, &a.IncidentID, &a.EvidenceType, &a.FilePath, &a.SubmissionDate, &a.OriginalStatus, &assigned, &a.RejectedByAdminID, &a.ArchiveReason, &a.ArchivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.AdminAssignedID = nullInt64Ptr(assigned)
	return &a, nil
}

func (s *recycleBinStore) RestoreReport(ctx context.Context, binID int64) error {
	a, err := s.GetArchivedReport(ctx, binID)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var activeCount int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM incident_reports WHERE id=?`, a.IncidentID).Scan(&activeCount); err != nil {
		tx.Rollback()
		return err
	}
	if activeCount > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE incident_reports
			SET victim_id=?, perpetrator_id=?, attack_type_id=?, admin_id=?, date_reported=?, description=?, status=?
			WHERE id=? AND status=?`,
			a.VictimID, a.PerpetratorID, a.AttackTypeID, nullableID(a.AdminAssignedID),
			a.DateReported, a.Description, a.OriginalStatus, a.IncidentID, ReportRejected)
		if err != nil {
			tx.Rollback()
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			tx.Rollback()
			return ErrConflict
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO incident_reports(id, victim_id, perpetrator_id, attack_type_id, admin_id, date_reported, description, status)
			VALUES(?,?,?,?,?,?,?,?)`,
			a.IncidentID, a.VictimID, a.PerpetratorID, a.AttackTypeID, nullableID(a.AdminAssignedID), a.DateReported, a.Description, a.OriginalStatus); err != nil {
			tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recycle_bin_reports WHERE bin_id=?`, binID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *recycleBinStore) RestoreEvidence(ctx context.Context, binID int64) error {
	a, err := s.GetArchivedEvidence(ctx, binID)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var activeCount int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM evidence_uploads WHERE id=?`, a.EvidenceID).Scan(&activeCount); err != nil {
		tx.Rollback()
		return err
	}
	// Restoring evidence only makes sense while its parent report is
	// still around; the FK refuses orphans otherwise.
	if activeCount > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE evidence_uploads
			SET incident_id=?, evidence_type=?, file_path=?, submission_date=?, verified_status=?, admin_id=?
			WHERE id=?`,
			a.IncidentID, a.EvidenceType, a.FilePath, a.SubmissionDate,
			a.OriginalStatus, nullableID(a.AdminAssignedID), a.EvidenceID); err != nil {
			tx.Rollback()
			return err
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_uploads(id, incident_id, evidence_type, file_path, submission_date, verified_status, admin_id)
			VALUES(?,?,?,?,?,?,?)`,
			a.EvidenceID, a.IncidentID, a.EvidenceType, a.FilePath, a.SubmissionDate, a.OriginalStatus, nullableID(a.AdminAssignedID)); err != nil {
			tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recycle_bin_evidence WHERE bin_id=?`, binID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *recycleBinStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recycle_bin_reports WHERE archived_at < ?`, cutoff)
	if err != nil {
		return 0, 0, err
	}
	reports, _ := res.RowsAffected()
	res, err = s.db.ExecContext(ctx, `DELETE FROM recycle_bin_evidence WHERE archived_at < ?`, cutoff)
	if err != nil {
		return reports, 0, err
	}
	evidence, _ := res.RowsAffected()
	return reports, evidence, nil
}
