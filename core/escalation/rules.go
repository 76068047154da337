package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phishnet/core/store"
	"phishnet/core/utils"
)

// Escalation thresholds are deliberate constants, not configuration:
// changing them is a policy decision, not a deployment knob.
const (
	perpDistinctVictimThreshold = 3
	perpWindowDays              = 7
	victimMonthlyThreshold      = 5
)

var ErrNotEnoughIncidents = errors.New("not enough incidents this month to flag the account")

// Notice is a user-facing message produced when a threshold trips.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	NoticePerpEscalated = "perpetrator_escalated"
	NoticeVictimFlagged = "victim_flagged"
)

// Service holds the auto-escalation rules run after every report insert,
// plus the manual review paths that re-validate the same thresholds.
type Service struct {
	reports store.ReportsStore
	perps   store.PerpetratorsStore
	victims store.VictimsStore
	audits  store.AuditStore
	logger  *utils.Logger
}

func NewService(reports store.ReportsStore, perps store.PerpetratorsStore, victims store.VictimsStore, audits store.AuditStore, logger *utils.Logger) *Service {
	return &Service{reports: reports, perps: perps, victims: victims, audits: audits, logger: logger}
}

// CheckPerpetrator escalates a perpetrator to Malicious once reports from
// three distinct victims land within the trailing seven calendar days.
// Every failure downgrades to a warning: escalation never unwinds the
// report insert that triggered it.
func (s *Service) CheckPerpetrator(ctx context.Context, perpetratorID int64, now time.Time) *Notice {
	cutoff := utils.StartOfDay(now).AddDate(0, 0, -perpWindowDays)
	n, err := s.reports.CountDistinctVictims(ctx, perpetratorID, cutoff)
	if err != nil {
		s.logger.Errorf("escalation: distinct victim count for perpetrator %d: %v", perpetratorID, err)
		return nil
	}
	if n < perpDistinctVictimThreshold {
		return nil
	}
	p, err := s.perps.GetPerpetrator(ctx, perpetratorID)
	if err != nil {
		s.logger.Errorf("escalation: load perpetrator %d: %v", perpetratorID, err)
		return nil
	}
	if p.ThreatLevel == store.ThreatMalicious {
		return nil
	}
	if err := s.perps.UpdateThreatLevel(ctx, perpetratorID, store.ThreatMalicious); err != nil {
		s.logger.Errorf("escalation: update threat level for perpetrator %d: %v", perpetratorID, err)
		return nil
	}
	entry := &store.ThreatLevelLog{
		PerpetratorID: perpetratorID,
		OldLevel:      p.ThreatLevel,
		NewLevel:      store.ThreatMalicious,
		ChangeDate:    now,
	}
	if err := s.audits.AppendThreatLevelChange(ctx, entry); err != nil {
		s.logger.Errorf("escalation: threat level log for perpetrator %d: %v", perpetratorID, err)
	}
	return &Notice{
		Kind:    NoticePerpEscalated,
		Message: fmt.Sprintf("Perpetrator %s escalated to Malicious: reports from %d distinct victims in the last %d days", p.Identifier, n, perpWindowDays),
	}
}

// CheckVictim flags a victim whose report count this calendar month goes
// past the threshold. The triggering report is already committed, so it
// counts toward its own threshold.
func (s *Service) CheckVictim(ctx context.Context, victimID int64, now time.Time) *Notice {
	from, to := utils.MonthBounds(now)
	n, err := s.reports.CountVictimReportsBetween(ctx, victimID, from, to)
	if err != nil {
		s.logger.Errorf("escalation: monthly report count for victim %d: %v", victimID, err)
		return nil
	}
	if n <= victimMonthlyThreshold {
		return nil
	}
	v, err := s.victims.GetVictim(ctx, victimID)
	if err != nil {
		s.logger.Errorf("escalation: load victim %d: %v", victimID, err)
		return nil
	}
	if v.AccountStatus == store.AccountFlagged {
		return nil
	}
	if err := s.victims.UpdateVictimStatus(ctx, victimID, store.AccountFlagged); err != nil {
		s.logger.Errorf("escalation: flag victim %d: %v", victimID, err)
		return nil
	}
	entry := &store.VictimStatusLog{
		VictimID:   victimID,
		OldStatus:  v.AccountStatus,
		NewStatus:  store.AccountFlagged,
		ChangeDate: now,
	}
	if err := s.audits.AppendVictimStatusChange(ctx, entry); err != nil {
		s.logger.Errorf("escalation: victim status log for victim %d: %v", victimID, err)
	}
	return &Notice{
		Kind:    NoticeVictimFlagged,
		Message: fmt.Sprintf("Account flagged: %d reports filed this month", n),
	}
}

// FlagVictim is the manual review path. It re-validates the monthly
// threshold instead of trusting the caller, and records the acting admin
// in the status log.
func (s *Service) FlagVictim(ctx context.Context, victimID, adminID int64, now time.Time) error {
	v, err := s.victims.GetVictim(ctx, victimID)
	if err != nil {
		return err
	}
	if v.AccountStatus == store.AccountFlagged {
		return nil
	}
	from, to := utils.MonthBounds(now)
	n, err := s.reports.CountVictimReportsBetween(ctx, victimID, from, to)
	if err != nil {
		return fmt.Errorf("monthly report count for victim %d: %w", victimID, err)
	}
	if n <= victimMonthlyThreshold {
		return ErrNotEnoughIncidents
	}
	if err := s.victims.UpdateVictimStatus(ctx, victimID, store.AccountFlagged); err != nil {
		return err
	}
	entry := &store.VictimStatusLog{
		VictimID:   victimID,
		OldStatus:  v.AccountStatus,
		NewStatus:  store.AccountFlagged,
		ChangeDate: now,
		AdminID:    &adminID,
	}
	if err := s.audits.AppendVictimStatusChange(ctx, entry); err != nil {
		s.logger.Errorf("manual flag: victim status log for victim %d: %v", victimID, err)
	}
	return nil
}

// SetThreatLevel is the manual threat review path; unlike the automatic
// rule it accepts any target level and records the acting admin.
func (s *Service) SetThreatLevel(ctx context.Context, perpetratorID, adminID int64, level string) error {
	switch level {
	case store.ThreatUnderReview, store.ThreatSuspected, store.ThreatMalicious, store.ThreatCleared:
	default:
		return fmt.Errorf("unknown threat level %q", level)
	}
	p, err := s.perps.GetPerpetrator(ctx, perpetratorID)
	if err != nil {
		return err
	}
	if p.ThreatLevel == level {
		return nil
	}
	if err := s.perps.UpdateThreatLevel(ctx, perpetratorID, level); err != nil {
		return err
	}
	entry := &store.ThreatLevelLog{
		PerpetratorID: perpetratorID,
		OldLevel:      p.ThreatLevel,
		NewLevel:      level,
		ChangeDate:    utils.NowUTC(),
		AdminID:       &adminID,
	}
	if err := s.audits.AppendThreatLevelChange(ctx, entry); err != nil {
		s.logger.Errorf("manual review: threat level log for perpetrator %d: %v", perpetratorID, err)
	}
	return nil
}
