package tests

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"phishnet/core/escalation"
	"phishnet/core/store"
)

func TestPerpetratorEscalatesOnThirdDistinctVictim(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()

	victims := make([]*store.Victim, 4)
	for i := range victims {
		victims[i] = mustCreateVictim(t, s, fmt.Sprintf("V%d", i), fmt.Sprintf("v%d@example.com", i))
	}

	const identifier = "serial@evil.test"
	r1 := mustFileReport(t, s, victims[0].ID, identifier)
	if len(r1.Notices) != 0 {
		t.Fatalf("first report must not escalate, got %+v", r1.Notices)
	}
	mustFileReport(t, s, victims[1].ID, identifier)

	r3 := mustFileReport(t, s, victims[2].ID, identifier)
	found := false
	for _, n := range r3.Notices {
		if n.Kind == escalation.NoticePerpEscalated {
			found = true
		}
	}
	if !found {
		t.Fatalf("third distinct victim must escalate, got %+v", r3.Notices)
	}

	p, err := s.perps.FindByIdentifier(ctx, identifier)
	if err != nil {
		t.Fatalf("find perpetrator: %v", err)
	}
	if p.ThreatLevel != store.ThreatMalicious {
		t.Fatalf("expected %s, got %s", store.ThreatMalicious, p.ThreatLevel)
	}
	logs, _ := s.audits.ListThreatLevelChanges(ctx, p.ID)
	if len(logs) != 1 {
		t.Fatalf("expected exactly one escalation log row, got %d", len(logs))
	}
	if logs[0].AdminID != nil {
		t.Fatalf("automatic escalation must carry a nil admin, got %v", *logs[0].AdminID)
	}
	if logs[0].OldLevel != store.ThreatUnderReview || logs[0].NewLevel != store.ThreatMalicious {
		t.Fatalf("unexpected log transition: %+v", logs[0])
	}

	// A fourth report from an already-seen victim adds no distinct victim
	// and the level is already Malicious; no duplicate log may appear.
	r4 := mustFileReport(t, s, victims[0].ID, identifier)
	for _, n := range r4.Notices {
		if n.Kind == escalation.NoticePerpEscalated {
			t.Fatalf("already-escalated perpetrator produced a new notice")
		}
	}
	logs, _ = s.audits.ListThreatLevelChanges(ctx, p.ID)
	if len(logs) != 1 {
		t.Fatalf("expected no duplicate log rows, got %d", len(logs))
	}
}

func TestVictimFlaggedOnSixthMonthlyReport(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Busy", "busy@example.com")

	for i := 0; i < 5; i++ {
		r := mustFileReport(t, s, v.ID, fmt.Sprintf("p%d@evil.test", i))
		for _, n := range r.Notices {
			if n.Kind == escalation.NoticeVictimFlagged {
				t.Fatalf("report %d must not flag yet", i+1)
			}
		}
	}

	r6 := mustFileReport(t, s, v.ID, "p5@evil.test")
	found := false
	for _, n := range r6.Notices {
		if n.Kind == escalation.NoticeVictimFlagged {
			found = true
		}
	}
	if !found {
		t.Fatalf("sixth report in the month must flag, got %+v", r6.Notices)
	}

	got, _ := s.victims.GetVictim(ctx, v.ID)
	if got.AccountStatus != store.AccountFlagged {
		t.Fatalf("expected %s, got %s", store.AccountFlagged, got.AccountStatus)
	}
	logs, _ := s.audits.ListVictimStatusChanges(ctx, v.ID)
	if len(logs) != 1 {
		t.Fatalf("expected one status log, got %d", len(logs))
	}
	if logs[0].AdminID != nil {
		t.Fatalf("automatic flag must carry a nil admin")
	}

	// Seventh report: already Flagged, so no duplicate notice or log.
	r7 := mustFileReport(t, s, v.ID, "p6@evil.test")
	for _, n := range r7.Notices {
		if n.Kind == escalation.NoticeVictimFlagged {
			t.Fatalf("already-flagged victim produced a new notice")
		}
	}
	logs, _ = s.audits.ListVictimStatusChanges(ctx, v.ID)
	if len(logs) != 1 {
		t.Fatalf("expected no duplicate status logs, got %d", len(logs))
	}
}

func TestManualFlagRefusesBelowThreshold(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Edge", "edge@example.com")
	admin := mustCreateAdmin(t, s, "boss@example.com")

	for i := 0; i < 5; i++ {
		mustFileReport(t, s, v.ID, fmt.Sprintf("m%d@evil.test", i))
	}

	err := s.rules.FlagVictim(ctx, v.ID, admin.ID, time.Now().UTC())
	if !errors.Is(err, escalation.ErrNotEnoughIncidents) {
		t.Fatalf("five reports must not be flaggable, got err=%v", err)
	}
	got, _ := s.victims.GetVictim(ctx, v.ID)
	if got.AccountStatus != store.AccountActive {
		t.Fatalf("refused flag must leave the account %s, got %s", store.AccountActive, got.AccountStatus)
	}

	mustFileReport(t, s, v.ID, "m5@evil.test")
	// The sixth report auto-flags; a manual flag on an already-flagged
	// account is a quiet no-op.
	if err := s.rules.FlagVictim(ctx, v.ID, admin.ID, time.Now().UTC()); err != nil {
		t.Fatalf("flagging an already-flagged account: %v", err)
	}
}

func TestManualFlagRecordsActingAdmin(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Six", "six@example.com")
	admin := mustCreateAdmin(t, s, "boss@example.com")

	for i := 0; i < 6; i++ {
		mustFileReport(t, s, v.ID, fmt.Sprintf("a%d@evil.test", i))
	}
	// Undo the automatic flag so the manual path does the transition.
	if err := s.victims.UpdateVictimStatus(ctx, v.ID, store.AccountActive); err != nil {
		t.Fatalf("reset status: %v", err)
	}

	if err := s.rules.FlagVictim(ctx, v.ID, admin.ID, time.Now().UTC()); err != nil {
		t.Fatalf("manual flag: %v", err)
	}
	logs, _ := s.audits.ListVictimStatusChanges(ctx, v.ID)
	var manual *store.VictimStatusLog
	for i := range logs {
		if logs[i].AdminID != nil {
			manual = &logs[i]
		}
	}
	if manual == nil {
		t.Fatalf("expected a log row with the acting admin, got %+v", logs)
	}
	if *manual.AdminID != admin.ID {
		t.Fatalf("expected admin %d, got %d", admin.ID, *manual.AdminID)
	}
}

func TestPerpetratorUpsertByIdentifier(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "One", "one@example.com")

	mustFileReport(t, s, v.ID, "same@evil.test")
	first, err := s.perps.FindByIdentifier(ctx, "same@evil.test")
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	mustFileReport(t, s, v.ID, "same@evil.test")
	perps, err := s.perps.ListPerpetrators(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(perps) != 1 {
		t.Fatalf("same identifier must resolve to one row, got %d", len(perps))
	}
	second := perps[0]
	if second.ID != first.ID {
		t.Fatalf("identifier re-resolved to a different row: %d vs %d", second.ID, first.ID)
	}
	if second.LastIncidentDate.Before(first.LastIncidentDate) {
		t.Fatalf("last incident date must not move backwards")
	}
}

func TestSetThreatLevelValidatesAndLogs(t *testing.T) {
	_, db, logger := setupDB(t)
	s := newServices(db, logger)
	ctx := context.Background()
	v := mustCreateVictim(t, s, "Two", "two@example.com")
	admin := mustCreateAdmin(t, s, "boss@example.com")
	mustFileReport(t, s, v.ID, "graded@evil.test")
	p, _ := s.perps.FindByIdentifier(ctx, "graded@evil.test")

	if err := s.rules.SetThreatLevel(ctx, p.ID, admin.ID, "Radioactive"); err == nil {
		t.Fatalf("unknown level must be rejected")
	}
	if err := s.rules.SetThreatLevel(ctx, p.ID, admin.ID, store.ThreatSuspected); err != nil {
		t.Fatalf("set level: %v", err)
	}
	got, _ := s.perps.GetPerpetrator(ctx, p.ID)
	if got.ThreatLevel != store.ThreatSuspected {
		t.Fatalf("expected %s, got %s", store.ThreatSuspected, got.ThreatLevel)
	}
	logs, _ := s.audits.ListThreatLevelChanges(ctx, p.ID)
	if len(logs) != 1 {
		t.Fatalf("expected one log row, got %d", len(logs))
	}
	if logs[0].AdminID == nil || *logs[0].AdminID != admin.ID {
		t.Fatalf("manual change must record the acting admin")
	}

	// Setting the same level again is a no-op and must not log.
	if err := s.rules.SetThreatLevel(ctx, p.ID, admin.ID, store.ThreatSuspected); err != nil {
		t.Fatalf("repeat set: %v", err)
	}
	logs, _ = s.audits.ListThreatLevelChanges(ctx, p.ID)
	if len(logs) != 1 {
		t.Fatalf("no-op change must not add log rows, got %d", len(logs))
	}
}
