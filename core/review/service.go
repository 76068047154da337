package review

import (
	"context"
	"fmt"

	"phishnet/core/store"
	"phishnet/core/utils"
)

// ItemFailure names one failed ID inside a bulk operation.
type ItemFailure struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult tallies a bulk operation. One item's failure never aborts
// the rest; callers always get the full picture.
type BulkResult struct {
	Succeeded []int64       `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

func (r *BulkResult) ok(id int64) {
	r.Succeeded = append(r.Succeeded, id)
}

func (r *BulkResult) fail(id int64, err error) {
	r.Failed = append(r.Failed, ItemFailure{ID: id, Reason: err.Error()})
}

// Service is the review-side lifecycle engine: it owns every status
// transition for reports and evidence and the archive transfers those
// transitions imply.
type Service struct {
	reports  store.ReportsStore
	evidence store.EvidenceStore
	bin      store.RecycleBinStore
	notes    store.NotesStore
	admins   store.AdminsStore
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewService(reports store.ReportsStore, evidence store.EvidenceStore, bin store.RecycleBinStore, notes store.NotesStore, admins store.AdminsStore, audits store.AuditStore, logger *utils.Logger) *Service {
	return &Service{
		reports:  reports,
		evidence: evidence,
		bin:      bin,
		notes:    notes,
		admins:   admins,
		audits:   audits,
		logger:   logger,
	}
}

// ValidateReport marks a report Validated and records the acting admin.
// Re-validating an already-validated report rewrites the same status.
func (s *Service) ValidateReport(ctx context.Context, reportID, adminID int64) error {
	if err := s.reports.UpdateReportStatus(ctx, reportID, store.ReportValidated, adminID); err != nil {
		return fmt.Errorf("validate report %d: %w", reportID, err)
	}
	s.logAdminAction(ctx, adminID, "report.validate", fmt.Sprintf("report_id=%d", reportID))
	return nil
}

// RejectReports rejects each report independently. Per item the archive
// copy is attempted first but is best-effort: the status update to
// Rejected is the must-succeed step, so a report is never left
// un-rejectable because its audit copy failed. The row stays in the
// active table, visible to the victim as Rejected.
func (s *Service) RejectReports(ctx context.Context, reportIDs []int64, adminID int64, reason string) BulkResult {
	var result BulkResult
	for _, id := range reportIDs {
		r, err := s.reports.GetReport(ctx, id)
		if err != nil {
			result.fail(id, err)
			continue
		}
		if _, err := s.bin.ArchiveReport(ctx, r, adminID, reason); err != nil {
			s.logger.Errorf("archive copy of report %d failed, rejecting anyway: %v", id, err)
		}
		if err := s.reports.UpdateReportStatus(ctx, id, store.ReportRejected, adminID); err != nil {
			result.fail(id, err)
			continue
		}
		result.ok(id)
	}
	s.logAdminAction(ctx, adminID, "report.reject", fmt.Sprintf("succeeded=%d failed=%d", len(result.Succeeded), len(result.Failed)))
	return result
}

// VerifyEvidence marks each evidence item Verified, independently.
func (s *Service) VerifyEvidence(ctx context.Context, evidenceIDs []int64, adminID int64) BulkResult {
	var result BulkResult
	for _, id := range evidenceIDs {
		if err := s.evidence.UpdateEvidenceStatus(ctx, id, store.EvidenceVerified, adminID); err != nil {
			result.fail(id, err)
			continue
		}
		result.ok(id)
	}
	s.logAdminAction(ctx, adminID, "evidence.verify", fmt.Sprintf("succeeded=%d failed=%d", len(result.Succeeded), len(result.Failed)))
	return result
}

// RejectEvidence archives then hard-deletes each evidence item. The
// ordering is the inverse of report rejection: the archive insert must
// succeed before the delete is attempted, so evidence never disappears
// without a retained snapshot.
func (s *Service) RejectEvidence(ctx context.Context, evidenceIDs []int64, adminID int64, reason string) BulkResult {
	var result BulkResult
	for _, id := range evidenceIDs {
		e, err := s.evidence.GetEvidence(ctx, id)
		if err != nil {
			result.fail(id, err)
			continue
		}
		// Archive the row exactly as it sits in the pending queue: restore
		// re-inserts with the snapshot status, so the item must come back
		// reviewable, not Rejected.
		if _, err := s.bin.ArchiveEvidence(ctx, e, adminID, reason); err != nil {
			result.fail(id, fmt.Errorf("archive: %w", err))
			continue
		}
		if err := s.evidence.DeleteEvidence(ctx, id); err != nil {
			s.logger.Errorf("evidence %d archived but not deleted: %v", id, err)
			result.fail(id, err)
			continue
		}
		result.ok(id)
	}
	s.logAdminAction(ctx, adminID, "evidence.reject", fmt.Sprintf("succeeded=%d failed=%d", len(result.Succeeded), len(result.Failed)))
	return result
}

// RestoreReports moves archived reports back to the active table, one
// transaction per bin ID.
func (s *Service) RestoreReports(ctx context.Context, binIDs []int64, adminID int64) BulkResult {
	var result BulkResult
	for _, binID := range binIDs {
		if err := s.bin.RestoreReport(ctx, binID); err != nil {
			result.fail(binID, err)
			continue
		}
		result.ok(binID)
	}
	s.logAdminAction(ctx, adminID, "report.restore", fmt.Sprintf("succeeded=%d failed=%d", len(result.Succeeded), len(result.Failed)))
	return result
}

// RestoreEvidence re-inserts archived evidence rows, one transaction per
// bin ID.
func (s *Service) RestoreEvidence(ctx context.Context, binIDs []int64, adminID int64) BulkResult {
	var result BulkResult
	for _, binID := range binIDs {
		if err := s.bin.RestoreEvidence(ctx, binID); err != nil {
			result.fail(binID, err)
			continue
		}
		result.ok(binID)
	}
	s.logAdminAction(ctx, adminID, "evidence.restore", fmt.Sprintf("succeeded=%d failed=%d", len(result.Succeeded), len(result.Failed)))
	return result
}

// SaveEvaluationNote upserts the reviewer's working note on a report.
func (s *Service) SaveEvaluationNote(ctx context.Context, reportID, adminID int64, text string) error {
	if _, err := s.reports.GetReport(ctx, reportID); err != nil {
		return fmt.Errorf("report %d: %w", reportID, err)
	}
	n := &store.EvaluationNote{IncidentID: reportID, Notes: text, AdminID: &adminID}
	if err := s.notes.SaveNote(ctx, n); err != nil {
		return fmt.Errorf("save note for report %d: %w", reportID, err)
	}
	return nil
}

func (s *Service) GetEvaluationNote(ctx context.Context, reportID int64) (*store.EvaluationNote, error) {
	return s.notes.GetNote(ctx, reportID)
}

// PurgeReport permanently removes a rejected report from the active
// table. The archive snapshot in the recycle bin is untouched, so the
// row can still be restored later. Reports in any other state refuse
// the purge.
func (s *Service) PurgeReport(ctx context.Context, reportID, adminID int64) error {
	r, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return err
	}
	if r.Status != store.ReportRejected {
		return fmt.Errorf("report %d is %s: %w", reportID, r.Status, store.ErrConflict)
	}
	if err := s.reports.DeleteReport(ctx, reportID); err != nil {
		return err
	}
	s.logAdminAction(ctx, adminID, "report.purge", fmt.Sprintf("report_id=%d", reportID))
	return nil
}

func (s *Service) DeleteEvaluationNote(ctx context.Context, reportID, adminID int64) error {
	if err := s.notes.DeleteNote(ctx, reportID); err != nil {
		return err
	}
	s.logAdminAction(ctx, adminID, "report.note_deleted", fmt.Sprintf("report_id=%d", reportID))
	return nil
}

// logAdminAction writes the generic audit row; failures downgrade to a
// warning so the reviewed transition itself stands.
func (s *Service) logAdminAction(ctx context.Context, adminID int64, action, details string) {
	username := fmt.Sprintf("admin:%d", adminID)
	if a, err := s.admins.GetAdmin(ctx, adminID); err == nil {
		username = a.ContactEmail
	}
	if err := s.audits.LogAction(ctx, username, action, details); err != nil {
		s.logger.Errorf("audit %s: %v", action, err)
	}
}
