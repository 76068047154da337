package tests

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"phishnet/config"
	"phishnet/core/escalation"
	"phishnet/core/intake"
	"phishnet/core/review"
	"phishnet/core/store"
	"phishnet/core/utils"
)

func setupDB(t *testing.T) (*config.AppConfig, *sql.DB, *utils.Logger) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBDriver:   "sqlite",
		DBPath:     filepath.Join(dir, "phishnet.db"),
		Pepper:     "pepper",
		SessionTTL: time.Hour,
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return cfg, db, logger
}

type services struct {
	victims  store.VictimsStore
	admins   store.AdminsStore
	perps    store.PerpetratorsStore
	attacks  store.AttackTypesStore
	reports  store.ReportsStore
	evidence store.EvidenceStore
	bin      store.RecycleBinStore
	notes    store.NotesStore
	audits   store.AuditStore
	rules    *escalation.Service
	intake   *intake.Service
	review   *review.Service
}

func newServices(db *sql.DB, logger *utils.Logger) *services {
	s := &services{
		victims:  store.NewVictimsStore(db),
		admins:   store.NewAdminsStore(db),
		perps:    store.NewPerpetratorsStore(db),
		attacks:  store.NewAttackTypesStore(db),
		reports:  store.NewReportsStore(db),
		evidence: store.NewEvidenceStore(db),
		bin:      store.NewRecycleBinStore(db),
		notes:    store.NewNotesStore(db),
		audits:   store.NewAuditStore(db),
	}
	s.rules = escalation.NewService(s.reports, s.perps, s.victims, s.audits, logger)
	s.intake = intake.NewService(s.victims, s.perps, s.attacks, s.reports, s.evidence, s.rules, s.audits, logger)
	s.review = review.NewService(s.reports, s.evidence, s.bin, s.notes, s.admins, s.audits, logger)
	return s
}

func mustCreateVictim(t *testing.T, s *services, name, email string) *store.Victim {
	t.Helper()
	v := &store.Victim{Name: name, ContactEmail: email, PasswordHash: "legacyhash"}
	if _, err := s.victims.CreateVictim(context.Background(), v); err != nil {
		t.Fatalf("create victim %s: %v", email, err)
	}
	return v
}

func mustCreateAdmin(t *testing.T, s *services, email string) *store.Administrator {
	t.Helper()
	a := &store.Administrator{Name: "Reviewer", ContactEmail: email, PasswordHash: "h", Role: store.RoleManager}
	if _, err := s.admins.CreateAdmin(context.Background(), a); err != nil {
		t.Fatalf("create admin %s: %v", email, err)
	}
	return a
}

func mustFileReport(t *testing.T, s *services, victimID int64, perpIdentifier string) *intake.CreateReportResult {
	t.Helper()
	result, err := s.intake.CreateIncidentReport(context.Background(), intake.CreateReportInput{
		VictimID:           victimID,
		PerpIdentifier:     perpIdentifier,
		PerpIdentifierType: "email",
		AttackTypeName:     "Phishing",
		Description:        "suspicious message",
	})
	if err != nil {
		t.Fatalf("file report for victim %d: %v", victimID, err)
	}
	return result
}
