package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"phishnet/core/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS victims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		contact_email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		account_status TEXT NOT NULL DEFAULT 'Active',
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS administrators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'reviewer',
		contact_email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		date_assigned TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS perpetrators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT UNIQUE NOT NULL,
		identifier_type TEXT NOT NULL,
		associated_name TEXT NOT NULL DEFAULT '',
		threat_level TEXT NOT NULL DEFAULT 'UnderReview',
		last_incident_date TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS attack_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		severity_level TEXT NOT NULL DEFAULT 'Medium'
	);`,
	`CREATE TABLE IF NOT EXISTS incident_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		victim_id INTEGER NOT NULL,
		perpetrator_id INTEGER NOT NULL,
		attack_type_id INTEGER NOT NULL,
		admin_id INTEGER,
		date_reported TIMESTAMP NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Pending',
		FOREIGN KEY(victim_id) REFERENCES victims(id) ON DELETE CASCADE,
		FOREIGN KEY(perpetrator_id) REFERENCES perpetrators(id),
		FOREIGN KEY(attack_type_id) REFERENCES attack_types(id),
		FOREIGN KEY(admin_id) REFERENCES administrators(id)
	);`,
	`CREATE TABLE IF NOT EXISTS evidence_uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		incident_id INTEGER NOT NULL,
		evidence_type TEXT NOT NULL,
		file_path TEXT NOT NULL,
		submission_date TIMESTAMP NOT NULL,
		verified_status TEXT NOT NULL DEFAULT 'Pending',
		admin_id INTEGER,
		FOREIGN KEY(incident_id) REFERENCES incident_reports(id) ON DELETE CASCADE,
		FOREIGN KEY(admin_id) REFERENCES administrators(id)
	);`,
	`CREATE TABLE IF NOT EXISTS evaluation_notes (
		incident_id INTEGER PRIMARY KEY,
		notes TEXT NOT NULL DEFAULT '',
		admin_id INTEGER,
		last_updated TIMESTAMP NOT NULL,
		FOREIGN KEY(incident_id) REFERENCES incident_reports(id) ON DELETE CASCADE,
		FOREIGN KEY(admin_id) REFERENCES administrators(id)
	);`,
	`CREATE TABLE IF NOT EXISTS recycle_bin_reports (
		bin_id INTEGER PRIMARY KEY AUTOINCREMENT,
		incident_id INTEGER NOT NULL,
		victim_id INTEGER NOT NULL,
		perpetrator_id INTEGER NOT NULL,
		attack_type_id INTEGER NOT NULL,
		date_reported TIMESTAMP NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		original_status TEXT NOT NULL,
		admin_assigned_id INTEGER,
		rejected_by_admin_id INTEGER NOT NULL,
		archive_reason TEXT NOT NULL,
		archived_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS recycle_bin_evidence (
		bin_id INTEGER PRIMARY KEY AUTOINCREMENT,
		evidence_id INTEGER NOT NULL,
		incident_id INTEGER NOT NULL,
		evidence_type TEXT NOT NULL,
		file_path TEXT NOT NULL,
		submission_date TIMESTAMP NOT NULL,
		original_status TEXT NOT NULL,
		admin_assigned_id INTEGER,
		rejected_by_admin_id INTEGER NOT NULL,
		archive_reason TEXT NOT NULL,
		archived_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS threat_level_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		perpetrator_id INTEGER NOT NULL,
		old_level TEXT NOT NULL DEFAULT '',
		new_level TEXT NOT NULL,
		change_date TIMESTAMP NOT NULL,
		admin_id INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS victim_status_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		victim_id INTEGER NOT NULL,
		old_status TEXT NOT NULL DEFAULT '',
		new_status TEXT NOT NULL,
		change_date TIMESTAMP NOT NULL,
		admin_id INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		subject_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON incident_reports(status);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_victim_date ON incident_reports(victim_id, date_reported);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_perp_date ON incident_reports(perpetrator_id, date_reported);`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_status ON evidence_uploads(verified_status);`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_incident ON evidence_uploads(incident_id);`,
	`CREATE INDEX IF NOT EXISTS idx_bin_reports_archived ON recycle_bin_reports(archived_at);`,
	`CREATE INDEX IF NOT EXISTS idx_bin_evidence_archived ON recycle_bin_evidence(archived_at);`,
	`CREATE INDEX IF NOT EXISTS idx_threat_log_perp ON threat_level_log(perpetrator_id, change_date);`,
	`CREATE INDEX IF NOT EXISTS idx_victim_log_victim ON victim_status_log(victim_id, change_date);`,
}

// Reference attack categories seeded once; admins can extend the table but
// the app never deletes from it.
var seedAttackTypes = []AttackType{
	{Name: "Phishing", Description: "Fraudulent messages luring victims into revealing credentials or payment details", SeverityLevel: "High"},
	{Name: "Smishing", Description: "Phishing carried out over SMS", SeverityLevel: "Medium"},
	{Name: "Vishing", Description: "Phishing carried out over voice calls", SeverityLevel: "Medium"},
	{Name: "Online Scam", Description: "Fake marketplace listings, advance-fee and investment fraud", SeverityLevel: "High"},
	{Name: "Identity Theft", Description: "Impersonation of the victim using stolen personal data", SeverityLevel: "High"},
	{Name: "Malware", Description: "Malicious attachments or download links", SeverityLevel: "High"},
}

func ApplyMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return err
	}
	if isPG {
		return applyGooseMigrations(ctx, db, logger)
	}
	return applySQLiteMigrations(ctx, db, logger)
}

func applySQLiteMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	if logger != nil {
		logger.Printf("applying sqlite migrations")
	}
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	if err := ensureAttackTypes(ctx, db); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("sqlite migrations applied")
	}
	return nil
}

func applyGooseMigrations(ctx context.Context, db *sql.DB, logger *utils.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	if err := ensureAttackTypes(ctx, db); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("postgres migrations applied")
	}
	return nil
}

func ensureAttackTypes(ctx context.Context, db *sql.DB) error {
	for _, at := range seedAttackTypes {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attack_types WHERE name=?`, at.Name).Scan(&exists)
		if err != nil {
			return err
		}
		if exists > 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO attack_types(name, description, severity_level) VALUES(?,?,?)`,
			at.Name, at.Description, at.SeverityLevel); err != nil {
			return err
		}
	}
	return nil
}

func isPostgresDB(ctx context.Context, db *sql.DB) (bool, error) {
	var version string
	if err := db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&version); err == nil {
		return false, nil
	}
	if err := db.QueryRowContext(ctx, `SELECT version()`).Scan(&version); err != nil {
		return false, fmt.Errorf("detect database flavor: %w", err)
	}
	return true, nil
}
