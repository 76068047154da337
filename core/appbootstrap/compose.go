package appbootstrap

import (
	"database/sql"

	"phishnet/api"
	"phishnet/config"
	"phishnet/core/auth"
	"phishnet/core/escalation"
	"phishnet/core/intake"
	"phishnet/core/rbac"
	"phishnet/core/retention"
	"phishnet/core/review"
	"phishnet/core/store"
	"phishnet/core/utils"
)

type runtimeComposition struct {
	serverDeps api.ServerDeps
	workers    []api.BackgroundWorker
}

func composeRuntime(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*runtimeComposition, error) {
	victims := store.NewVictimsStore(db)
	admins := store.NewAdminsStore(db)
	perps := store.NewPerpetratorsStore(db)
	attackTypes := store.NewAttackTypesStore(db)
	reports := store.NewReportsStore(db)
	evidence := store.NewEvidenceStore(db)
	bin := store.NewRecycleBinStore(db)
	notes := store.NewNotesStore(db)
	sessions := store.NewSessionsStore(db)
	audits := store.NewAuditStore(db)

	enforcer, err := rbac.NewEnforcer()
	if err != nil {
		return nil, err
	}
	sessionManager := auth.NewSessionManager(sessions, cfg, logger)
	accounts := auth.NewAccountsService(cfg, victims, admins, audits, logger)
	rules := escalation.NewService(reports, perps, victims, audits, logger)
	intakeSvc := intake.NewService(victims, perps, attackTypes, reports, evidence, rules, audits, logger)
	reviewSvc := review.NewService(reports, evidence, bin, notes, admins, audits, logger)
	retentionSvc := retention.NewService(cfg.Retention, bin, sessionManager, audits, logger)
	retentionScheduler := retention.NewScheduler(cfg.Retention, retentionSvc)

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			Victims:     victims,
			Admins:      admins,
			Perps:       perps,
			AttackTypes: attackTypes,
			Reports:     reports,
			Evidence:    evidence,
			Bin:         bin,
			Audits:      audits,
			Accounts:    accounts,
			Sessions:    sessionManager,
			Intake:      intakeSvc,
			Review:      reviewSvc,
			Rules:       rules,
			Enforcer:    enforcer,
		},
		workers: []api.BackgroundWorker{retentionScheduler},
	}, nil
}
