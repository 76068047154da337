package store

import (
	"context"
	"database/sql"
	"time"
)

// AuditEntry is a generic audit trail row; threat level and victim status
// changes get their own typed tables alongside.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditStore interface {
	LogAction(ctx context.Context, username, action, details string) error
	ListActions(ctx context.Context, limit int) ([]AuditEntry, error)

	AppendThreatLevelChange(ctx context.Context, entry *ThreatLevelLog) error
	ListThreatLevelChanges(ctx context.Context, perpetratorID int64) ([]ThreatLevelLog, error)

	AppendVictimStatusChange(ctx context.Context, entry *VictimStatusLog) error
	ListVictimStatusChanges(ctx context.Context, victimID int64) ([]VictimStatusLog, error)
}

type auditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) AuditStore {
	return &auditStore{db: db}
}

func (s *auditStore) LogAction(ctx context.Context, username, action, details string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log(username, action, details, created_at) VALUES(?,?,?,?)`,
		username, action, details, time.Now().UTC())
	return err
}

func (s *auditStore) ListActions(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, action, COALESCE(details, ''), created_at
		FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *auditStore) AppendThreatLevelChange(ctx context.Context, entry *ThreatLevelLog) error {
	if entry.ChangeDate.IsZero() {
		entry.ChangeDate = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO threat_level_log(perpetrator_id, old_level, new_level, change_date, admin_id)
		VALUES(?,?,?,?,?)`,
		entry.PerpetratorID, entry.OldLevel, entry.NewLevel, entry.ChangeDate, nullableID(entry.AdminID))
	if err != nil {
		return err
	}
	entry.ID, _ = res.LastInsertId()
	return nil
}

func (s *auditStore) ListThreatLevelChanges(ctx context.Context, perpetratorID int64) ([]ThreatLevelLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, perpetrator_id, old_level, new_level, change_date, admin_id
		FROM threat_level_log WHERE perpetrator_id=? ORDER BY change_date DESC, id DESC`, perpetratorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ThreatLevelLog
	for rows.Next() {
		var entry ThreatLevelLog
		var adminID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.PerpetratorID, &entry.OldLevel, &entry.NewLevel, &entry.ChangeDate, &adminID); err != nil {
			return nil, err
		}
		entry.AdminID = nullInt64Ptr(adminID)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *auditStore) AppendVictimStatusChange(ctx context.Context, entry *VictimStatusLog) error {
	if entry.ChangeDate.IsZero() {
		entry.ChangeDate = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO victim_status_log(victim_id, old_status, new_status, change_date, admin_id)
		VALUES(?,?,?,?,?)`,
		entry.VictimID, entry.OldStatus, entry.NewStatus, entry.ChangeDate, nullableID(entry.AdminID))
	if err != nil {
		return err
	}
	entry.ID, _ = res.LastInsertId()
	return nil
}

func (s *auditStore) ListVictimStatusChanges(ctx context.Context, victimID int64) ([]VictimStatusLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, victim_id, old_status, new_status, change_date, admin_id
		FROM victim_status_log WHERE victim_id=? ORDER BY change_date DESC, id DESC`, victimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VictimStatusLog
	for rows.Next() {
		var entry VictimStatusLog
		var adminID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.VictimID, &entry.OldStatus, &entry.NewStatus, &entry.ChangeDate, &adminID); err != nil {
			return nil, err
		}
		entry.AdminID = nullInt64Ptr(adminID)
		out = append(out, entry)
	}
	return out, rows.Err()
}
