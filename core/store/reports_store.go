package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ReportDetail joins a report with the display fields the review screens
// need, so callers don't stitch four lookups per row.
type ReportDetail struct {
	IncidentReport
	VictimName       string `json:"victim_name"`
	VictimEmail      string `json:"victim_email"`
	PerpIdentifier   string `json:"perp_identifier"`
	PerpThreatLevel  string `json:"perp_threat_level"`
	AttackTypeName   string `json:"attack_type_name"`
	AttackSeverity   string `json:"attack_severity"`
	EvidenceCount    int    `json:"evidence_count"`
}

type ReportsStore interface {
	CreateReport(ctx context.Context, r *IncidentReport) (int64, error)
	GetReport(ctx context.Context, id int64) (*IncidentReport, error)
	GetReportDetail(ctx context.Context, id int64) (*ReportDetail, error)
	ListPendingReports(ctx context.Context) ([]ReportDetail, error)
	ListReportsByVictim(ctx context.Context, victimID int64) ([]ReportDetail, error)
	ListReportsByStatus(ctx context.Context, status string) ([]ReportDetail, error)
	UpdateReportStatus(ctx context.Context, id int64, status string, adminID int64) error
	DeleteReport(ctx context.Context, id int64) error

	// CountDistinctVictims counts how many different victims filed reports
	// against the perpetrator on or after the cutoff.
	CountDistinctVictims(ctx context.Context, perpetratorID int64, since time.Time) (int, error)
	// CountVictimReportsBetween counts the victim's reports with
	// date_reported in [from, to).
	CountVictimReportsBetween(ctx context.Context, victimID int64, from, to time.Time) (int, error)
}

type reportsStore struct {
	db *sql.DB
}

func NewReportsStore(db *sql.DB) ReportsStore {
	return &reportsStore{db: db}
}

func (s *reportsStore) CreateReport(ctx context.Context, r *IncidentReport) (int64, error) {
	if r.Status == "" {
		r.Status = ReportPending
	}
	if r.DateReported.IsZero() {
		r.DateReported = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO incident_reports(victim_id, perpetrator_id, attack_type_id, admin_id, date_reported, description, status)
		VALUES(?,?,?,?,?,?,?)`,
		r.VictimID, r.PerpetratorID, r.AttackTypeID, nullableID(r.AdminID), r.DateReported, r.Description, r.Status)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	r.ID = id
	return id, nil
}

func (s *reportsStore) GetReport(ctx context.Context, id int64) (*IncidentReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, victim_id, perpetrator_id, attack_type_id, admin_id, date_reported, description, status
		FROM incident_reports WHERE id=?`, id)
	var r IncidentReport
	var adminID sql.NullInt64
	err := row.Scan(&r.ID, &r.VictimID, &r.PerpetratorID, &r.AttackTypeID, &adminID, &r.DateReported, &r.Description, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.AdminID = nullInt64Ptr(adminID)
	return &r, nil
}

const reportDetailQuery = `
	SELECT r.id, r.victim_id, r.perpetrator_id, r.attack_type_id, r.admin_id, r.date_reported, r.description, r.status,
	       v.name, v.contact_email,
	       p.identifier, p.threat_level,
	       a.name, a.severity_level,
	       (SELECT COUNT(*) FROM evidence_uploads e WHERE e.incident_id = r.id)
	FROM incident_reports r
	JOIN victims v ON v.id = r.victim_id
	JOIN perpetrators p ON p.id = r.perpetrator_id
	JOIN attack_types a ON a.id = r.attack_type_id`

func (s *reportsStore) GetReportDetail(ctx context.Context, id int64) (*ReportDetail, error) {
	row := s.db.QueryRowContext(ctx, reportDetailQuery+` WHERE r.id=?`, id)
	var d ReportDetail
	var adminID sql.NullInt64
	err := row.Scan(&d.ID, &d.VictimID, &d.PerpetratorID, &d.AttackTypeID, &adminID, &d.DateReported, &d.Description, &d.Status,
		&d.VictimName, &d.VictimEmail, &d.PerpIdentifier, &d.PerpThreatLevel, &d.AttackTypeName, &d.AttackSeverity, &d.EvidenceCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.AdminID = nullInt64Ptr(adminID)
	return &d, nil
}

func (s *reportsStore) ListPendingReports(ctx context.Context) ([]ReportDetail, error) {
	return s.queryDetails(ctx, reportDetailQuery+` WHERE r.status=? ORDER BY r.date_reported`, ReportPending)
}

func (s *reportsStore) ListReportsByVictim(ctx context.Context, victimID int64) ([]ReportDetail, error) {
	return s.queryDetails(ctx, reportDetailQuery+` WHERE r.victim_id=? ORDER BY r.date_reported DESC`, victimID)
}

func (s *reportsStore) ListReportsByStatus(ctx context.Context, status string) ([]ReportDetail, error) {
	return s.queryDetails(ctx, reportDetailQuery+` WHERE r.status=? ORDER BY r.date_reported DESC`, status)
}

func (s *reportsStore) queryDetails(ctx context.Context, query string, args ...any) ([]ReportDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReportDetail
	for rows.Next() {
		var d ReportDetail
		var adminID sql.NullInt64
		if err := rows.Scan(&d.ID, &d.VictimID, &d.PerpetratorID, &d.AttackTypeID, &adminID, &d.DateReported, &d.Description, &d.Status,
			&d.VictimName, &d.VictimEmail, &d.PerpIdentifier, &d.PerpThreatLevel, &d.AttackTypeName, &d.AttackSeverity, &d.EvidenceCount); err != nil {
			return nil, err
		}
		d.AdminID = nullInt64Ptr(adminID)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *reportsStore) UpdateReportStatus(ctx context.Context, id int64, status string, adminID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE incident_reports SET status=?, admin_id=? WHERE id=?`, status, adminID, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *reportsStore) DeleteReport(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incident_reports WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *reportsStore) CountDistinctVictims(ctx context.Context, perpetratorID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT victim_id) FROM incident_reports
		WHERE perpetrator_id=? AND date_reported >= ?`, perpetratorID, since).Scan(&n)
	return n, err
}

func (s *reportsStore) CountVictimReportsBetween(ctx context.Context, victimID int64, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM incident_reports
		WHERE victim_id=? AND date_reported >= ? AND date_reported < ?`, victimID, from, to).Scan(&n)
	return n, err
}
