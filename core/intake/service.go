package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"phishnet/core/escalation"
	"phishnet/core/store"
	"phishnet/core/utils"
)

// Service owns report and evidence intake: the one-way path from a
// victim's submission to a Pending row plus any escalation notices.
type Service struct {
	victims     store.VictimsStore
	perps       store.PerpetratorsStore
	attackTypes store.AttackTypesStore
	reports     store.ReportsStore
	evidence    store.EvidenceStore
	rules       *escalation.Service
	audits      store.AuditStore
	logger      *utils.Logger
}

func NewService(victims store.VictimsStore, perps store.PerpetratorsStore, attackTypes store.AttackTypesStore, reports store.ReportsStore, evidence store.EvidenceStore, rules *escalation.Service, audits store.AuditStore, logger *utils.Logger) *Service {
	return &Service{
		victims:     victims,
		perps:       perps,
		attackTypes: attackTypes,
		reports:     reports,
		evidence:    evidence,
		rules:       rules,
		audits:      audits,
		logger:      logger,
	}
}

type CreateReportInput struct {
	VictimID           int64  `json:"victim_id"`
	PerpIdentifier     string `json:"perp_identifier"`
	PerpIdentifierType string `json:"perp_identifier_type"`
	AssociatedName     string `json:"associated_name,omitempty"`
	AttackTypeName     string `json:"attack_type_name"`
	Description        string `json:"description"`
}

type CreateReportResult struct {
	ReportID int64                `json:"report_id"`
	Notices  []escalation.Notice  `json:"notices,omitempty"`
}

// CreateIncidentReport resolves the perpetrator by identifier (upsert),
// inserts the Pending report, then runs both escalation checks against
// the freshly committed row. Escalation runs best-effort: its notices are
// returned when produced, its failures never fail the creation.
func (s *Service) CreateIncidentReport(ctx context.Context, in CreateReportInput) (*CreateReportResult, error) {
	v, err := s.victims.GetVictim(ctx, in.VictimID)
	if err != nil {
		return nil, fmt.Errorf("victim %d: %w", in.VictimID, err)
	}
	if v.AccountStatus == store.AccountSuspended {
		return nil, errors.New("suspended accounts cannot file reports")
	}
	at, err := s.attackTypes.FindAttackTypeByName(ctx, in.AttackTypeName)
	if err != nil {
		return nil, fmt.Errorf("attack type %q: %w", in.AttackTypeName, err)
	}
	if strings.TrimSpace(in.PerpIdentifier) == "" {
		return nil, errors.New("perpetrator identifier is required")
	}
	now := utils.NowUTC()
	perp := &store.Perpetrator{
		Identifier:       in.PerpIdentifier,
		IdentifierType:   in.PerpIdentifierType,
		AssociatedName:   in.AssociatedName,
		LastIncidentDate: now,
	}
	perpID, err := s.perps.CreateOrUpdate(ctx, perp)
	if err != nil {
		return nil, fmt.Errorf("resolve perpetrator: %w", err)
	}
	report := &store.IncidentReport{
		VictimID:      in.VictimID,
		PerpetratorID: perpID,
		AttackTypeID:  at.ID,
		DateReported:  now,
		Description:   strings.TrimSpace(in.Description),
	}
	reportID, err := s.reports.CreateReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	if err := s.audits.LogAction(ctx, utils.AnonymizeEmail(v.ContactEmail), "report.create", fmt.Sprintf("report_id=%d perp_id=%d", reportID, perpID)); err != nil {
		s.logger.Errorf("audit report create: %v", err)
	}

	result := &CreateReportResult{ReportID: reportID}
	if n := s.rules.CheckPerpetrator(ctx, perpID, now); n != nil {
		result.Notices = append(result.Notices, *n)
	}
	if n := s.rules.CheckVictim(ctx, in.VictimID, now); n != nil {
		result.Notices = append(result.Notices, *n)
	}
	return result, nil
}

type SubmitEvidenceInput struct {
	IncidentID   int64  `json:"incident_id"`
	EvidenceType string `json:"evidence_type"`
	FilePath     string `json:"file_path"`
}

// SubmitEvidence attaches a Pending evidence record to an existing
// report. The file path is stored opaquely; nothing checks it points at a
// real file.
func (s *Service) SubmitEvidence(ctx context.Context, in SubmitEvidenceInput) (int64, error) {
	if _, err := s.reports.GetReport(ctx, in.IncidentID); err != nil {
		return 0, fmt.Errorf("report %d: %w", in.IncidentID, err)
	}
	if strings.TrimSpace(in.FilePath) == "" {
		return 0, errors.New("file path is required")
	}
	e := &store.Evidence{
		IncidentID:   in.IncidentID,
		EvidenceType: strings.TrimSpace(in.EvidenceType),
		FilePath:     in.FilePath,
	}
	id, err := s.evidence.AddEvidence(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("add evidence: %w", err)
	}
	return id, nil
}
