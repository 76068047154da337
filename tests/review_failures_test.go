package tests

import (
	"context"
	"errors"
	"testing"

	"phishnet/core/review"
	"phishnet/core/store"
)

// archiveDownBin refuses archive inserts while passing everything else
// through to the real store.
type archiveDownBin struct {
	store.RecycleBinStore
}

func (b *archiveDownBin) ArchiveReport(ctx context.Context, r *store.IncidentReport, rejectedBy int64, reason string) (int64, error) {
	return 0, errors.New("archive storage unavailable")
}

func (b *archiveDownBin) ArchiveEvidence(ctx context.Context, e *store.Evidence, rejectedBy int64, reason string) (int64, error) {
	return 0, errors.New("archive storage unavailable")
}

// droppedAudit swallows the generic audit trail.
type droppedAudit struct {
	store.AuditStore
}

func (a *droppedAudit) LogAction(ctx context.Context, username, action, details string) error {
	return errors.New("audit log unavailable")
}

func TestRejectReportSucceedsWhenArchiveFails(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Ana", "ana@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "noarchive@evil.test")

	svc := review.NewService(s.reports, s.evidence, &archiveDownBin{RecycleBinStore: s.bin}, s.notes, s.admins, s.audits, logger)
	out := svc.RejectReports(ctx, []int64{result.ReportID}, admin.ID, "")
	if len(out.Succeeded) != 1 || len(out.Failed) != 0 {
		t.Fatalf("archive failure must not block the rejection, got %+v", out)
	}

	r, err := s.reports.GetReport(ctx, result.ReportID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if r.Status != store.ReportRejected {
		t.Fatalf("status update is the must-succeed step, got %s", r.Status)
	}
	if archived, _ := s.bin.ListArchivedReports(ctx); len(archived) != 0 {
		t.Fatalf("no archive row should exist, got %d", len(archived))
	}
}

func TestRejectEvidenceAbortsWhenArchiveFails(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Ben", "ben@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "noarchive@evil.test")
	eid, err := s.evidence.AddEvidence(ctx, &store.Evidence{
		IncidentID:   result.ReportID,
		EvidenceType: "screenshot",
		FilePath:     "/uploads/shot.png",
	})
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}

	svc := review.NewService(s.reports, s.evidence, &archiveDownBin{RecycleBinStore: s.bin}, s.notes, s.admins, s.audits, logger)
	out := svc.RejectEvidence(ctx, []int64{eid}, admin.ID, "")
	if len(out.Failed) != 1 || len(out.Succeeded) != 0 {
		t.Fatalf("evidence reject must fail when the archive insert fails, got %+v", out)
	}

	// The delete must never have been attempted: evidence stays in the
	// active table, still pending, with no snapshot anywhere.
	e, err := s.evidence.GetEvidence(ctx, eid)
	if err != nil {
		t.Fatalf("evidence must survive a failed archive: %v", err)
	}
	if e.VerifiedStatus != store.EvidencePending {
		t.Fatalf("evidence must stay %s, got %s", store.EvidencePending, e.VerifiedStatus)
	}
	if archived, _ := s.bin.ListArchivedEvidence(ctx); len(archived) != 0 {
		t.Fatalf("no archive row should exist, got %d", len(archived))
	}
}

func TestTransitionsSucceedWhenAuditLogFails(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Cam", "cam@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "noaudit@evil.test")

	svc := review.NewService(s.reports, s.evidence, s.bin, s.notes, s.admins, &droppedAudit{AuditStore: s.audits}, logger)
	if err := svc.ValidateReport(ctx, result.ReportID, admin.ID); err != nil {
		t.Fatalf("audit failure must not fail the transition: %v", err)
	}
	r, _ := s.reports.GetReport(ctx, result.ReportID)
	if r.Status != store.ReportValidated {
		t.Fatalf("expected %s, got %s", store.ReportValidated, r.Status)
	}

	second := mustFileReport(t, s, v.ID, "noaudit2@evil.test")
	out := svc.RejectReports(ctx, []int64{second.ReportID}, admin.ID, "")
	if len(out.Succeeded) != 1 {
		t.Fatalf("audit failure must not fail the rejection, got %+v", out)
	}
}
