package tests

import (
	"context"
	"errors"
	"testing"

	"phishnet/core/store"
)

func TestRejectReportKeepsVisibleRow(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Ana", "ana@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "scammer@evil.test")

	out := s.review.RejectReports(ctx, []int64{result.ReportID}, admin.ID, "")
	if len(out.Succeeded) != 1 || len(out.Failed) != 0 {
		t.Fatalf("expected 1 success, got %+v", out)
	}

	r, err := s.reports.GetReport(ctx, result.ReportID)
	if err != nil {
		t.Fatalf("rejected report must stay queryable: %v", err)
	}
	if r.Status != store.ReportRejected {
		t.Fatalf("expected status %s, got %s", store.ReportRejected, r.Status)
	}

	archived, err := s.bin.ListArchivedReports(ctx)
	if err != nil {
		t.Fatalf("list archive: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("expected exactly one archive row, got %d", len(archived))
	}
	if archived[0].ArchiveReason != store.DefaultReportArchiveReason {
		t.Fatalf("expected default archive reason, got %q", archived[0].ArchiveReason)
	}
	if archived[0].RejectedByAdminID != admin.ID {
		t.Fatalf("expected rejecting admin %d, got %d", admin.ID, archived[0].RejectedByAdminID)
	}
	if archived[0].OriginalStatus != store.ReportPending {
		t.Fatalf("archive snapshot must carry the pre-reject status, got %q", archived[0].OriginalStatus)
	}
}

func TestEvidenceRejectRemovesRowAndDoubleRejectFails(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Ben", "ben@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "fraud@evil.test")

	eid, err := s.evidence.AddEvidence(ctx, &store.Evidence{
		IncidentID:   result.ReportID,
		EvidenceType: "screenshot",
		FilePath:     "/uploads/shot1.png",
	})
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}

	out := s.review.RejectEvidence(ctx, []int64{eid}, admin.ID, "blurry")
	if len(out.Succeeded) != 1 {
		t.Fatalf("expected success, got %+v", out)
	}
	if _, err := s.evidence.GetEvidence(ctx, eid); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rejected evidence must be gone from the active table, got err=%v", err)
	}
	archived, _ := s.bin.ListArchivedEvidence(ctx)
	if len(archived) != 1 {
		t.Fatalf("expected exactly one archive row, got %d", len(archived))
	}
	if archived[0].ArchiveReason != "blurry" {
		t.Fatalf("expected supplied reason, got %q", archived[0].ArchiveReason)
	}
	if archived[0].OriginalStatus != store.EvidencePending {
		t.Fatalf("archive snapshot must carry the pre-reject status, got %q", archived[0].OriginalStatus)
	}

	again := s.review.RejectEvidence(ctx, []int64{eid}, admin.ID, "")
	if len(again.Failed) != 1 || len(again.Succeeded) != 0 {
		t.Fatalf("second reject must fail, got %+v", again)
	}
	archived, _ = s.bin.ListArchivedEvidence(ctx)
	if len(archived) != 1 {
		t.Fatalf("failed reject must not add archive rows, got %d", len(archived))
	}
}

func TestBulkRejectIsolation(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Cam", "cam@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	r1 := mustFileReport(t, s, v.ID, "one@evil.test")
	r2 := mustFileReport(t, s, v.ID, "two@evil.test")

	out := s.review.RejectReports(ctx, []int64{r1.ReportID, 99999, r2.ReportID}, admin.ID, "")
	if len(out.Succeeded) != 2 {
		t.Fatalf("expected 2 successes, got %+v", out)
	}
	if len(out.Failed) != 1 || out.Failed[0].ID != 99999 {
		t.Fatalf("expected failure for the nonexistent id, got %+v", out.Failed)
	}
	for _, id := range []int64{r1.ReportID, r2.ReportID} {
		r, err := s.reports.GetReport(ctx, id)
		if err != nil || r.Status != store.ReportRejected {
			t.Fatalf("report %d not fully processed: status=%v err=%v", id, r, err)
		}
	}
}

func TestValidateReportSetsAdmin(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Dee", "dee@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "three@evil.test")

	if err := s.review.ValidateReport(ctx, result.ReportID, admin.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	r, _ := s.reports.GetReport(ctx, result.ReportID)
	if r.Status != store.ReportValidated {
		t.Fatalf("expected %s, got %s", store.ReportValidated, r.Status)
	}
	if r.AdminID == nil || *r.AdminID != admin.ID {
		t.Fatalf("expected admin %d recorded, got %v", admin.ID, r.AdminID)
	}

	if err := s.review.ValidateReport(ctx, 424242, admin.ID); err == nil {
		t.Fatalf("validating a missing report must fail")
	}
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Eve", "eve@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "four@evil.test")
	before, _ := s.reports.GetReport(ctx, result.ReportID)

	s.review.RejectReports(ctx, []int64{result.ReportID}, admin.ID, "")
	archived, _ := s.bin.ListArchivedReports(ctx)
	if len(archived) != 1 {
		t.Fatalf("expected one archive row, got %d", len(archived))
	}

	out := s.review.RestoreReports(ctx, []int64{archived[0].BinID}, admin.ID)
	if len(out.Succeeded) != 1 {
		t.Fatalf("restore failed: %+v", out)
	}

	after, err := s.reports.GetReport(ctx, result.ReportID)
	if err != nil {
		t.Fatalf("restored report missing: %v", err)
	}
	if after.Status != before.Status {
		t.Fatalf("restore must bring back the pre-archive status %q, got %q", before.Status, after.Status)
	}
	if after.VictimID != before.VictimID || after.PerpetratorID != before.PerpetratorID ||
		after.AttackTypeID != before.AttackTypeID || after.Description != before.Description {
		t.Fatalf("restored row differs: before=%+v after=%+v", before, after)
	}
	if remaining, _ := s.bin.ListArchivedReports(ctx); len(remaining) != 0 {
		t.Fatalf("archive row must be gone after restore, got %d", len(remaining))
	}
}

func TestRestoreRefusesConcurrentlyRevalidatedReport(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Fay", "fay@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "five@evil.test")

	s.review.RejectReports(ctx, []int64{result.ReportID}, admin.ID, "")
	archived, _ := s.bin.ListArchivedReports(ctx)

	// Another admin validates the still-visible row before the restore
	// lands; the restore must refuse rather than overwrite.
	if err := s.review.ValidateReport(ctx, result.ReportID, admin.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	out := s.review.RestoreReports(ctx, []int64{archived[0].BinID}, admin.ID)
	if len(out.Failed) != 1 {
		t.Fatalf("expected the restore to fail, got %+v", out)
	}
	r, _ := s.reports.GetReport(ctx, result.ReportID)
	if r.Status != store.ReportValidated {
		t.Fatalf("validated status must stand, got %s", r.Status)
	}
}

func TestRestoreEvidenceReinsertsRow(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Gil", "gil@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "six@evil.test")

	eid, _ := s.evidence.AddEvidence(ctx, &store.Evidence{
		IncidentID:   result.ReportID,
		EvidenceType: "email",
		FilePath:     "/uploads/mail.eml",
	})
	s.review.RejectEvidence(ctx, []int64{eid}, admin.ID, "")
	archived, _ := s.bin.ListArchivedEvidence(ctx)
	if len(archived) != 1 {
		t.Fatalf("expected one archive row, got %d", len(archived))
	}

	out := s.review.RestoreEvidence(ctx, []int64{archived[0].BinID}, admin.ID)
	if len(out.Succeeded) != 1 {
		t.Fatalf("restore failed: %+v", out)
	}
	e, err := s.evidence.GetEvidence(ctx, eid)
	if err != nil {
		t.Fatalf("restored evidence missing: %v", err)
	}
	if e.FilePath != "/uploads/mail.eml" || e.IncidentID != result.ReportID {
		t.Fatalf("restored evidence differs: %+v", e)
	}
	if e.VerifiedStatus != store.EvidencePending {
		t.Fatalf("restored evidence must come back %s for re-review, got %s", store.EvidencePending, e.VerifiedStatus)
	}
	pending, err := s.evidence.ListPendingEvidence(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.ID == eid {
			found = true
		}
	}
	if !found {
		t.Fatalf("restored evidence must reappear in the pending queue")
	}
	if remaining, _ := s.bin.ListArchivedEvidence(ctx); len(remaining) != 0 {
		t.Fatalf("archive row must be gone after restore, got %d", len(remaining))
	}
}

func TestEvaluationNoteUpsert(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Hal", "hal@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "seven@evil.test")

	if err := s.review.SaveEvaluationNote(ctx, result.ReportID, admin.ID, "first pass"); err != nil {
		t.Fatalf("save note: %v", err)
	}
	if err := s.review.SaveEvaluationNote(ctx, result.ReportID, admin.ID, "second pass"); err != nil {
		t.Fatalf("save note again: %v", err)
	}
	n, err := s.review.GetEvaluationNote(ctx, result.ReportID)
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if n.Notes != "second pass" {
		t.Fatalf("expected upserted text, got %q", n.Notes)
	}

	if err := s.review.DeleteEvaluationNote(ctx, result.ReportID, admin.ID); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if _, err := s.review.GetEvaluationNote(ctx, result.ReportID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted note must be gone, got %v", err)
	}
}

func TestPurgeReportOnlyWhenRejected(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Ida", "ida@example.com")
	admin := mustCreateAdmin(t, s, "rev@example.com")
	result := mustFileReport(t, s, v.ID, "eight@evil.test")

	if err := s.review.PurgeReport(ctx, result.ReportID, admin.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("pending report must refuse the purge, got %v", err)
	}

	s.review.RejectReports(ctx, []int64{result.ReportID}, admin.ID, "")
	if err := s.review.PurgeReport(ctx, result.ReportID, admin.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := s.reports.GetReport(ctx, result.ReportID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("purged report must be gone, got %v", err)
	}
	// The archive snapshot stays, so the report can come back later.
	archived, _ := s.bin.ListArchivedReports(ctx)
	if len(archived) != 1 {
		t.Fatalf("purge must keep the archive row, got %d", len(archived))
	}
	out := s.review.RestoreReports(ctx, []int64{archived[0].BinID}, admin.ID)
	if len(out.Succeeded) != 1 {
		t.Fatalf("restore after purge failed: %+v", out)
	}
}
