package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"phishnet/api/handlers"
	"phishnet/config"
	"phishnet/core/auth"
	"phishnet/core/escalation"
	"phishnet/core/intake"
	"phishnet/core/rbac"
	"phishnet/core/review"
	"phishnet/core/store"
	"phishnet/core/utils"
)

// ServerDeps is everything the HTTP layer needs; appbootstrap fills it.
type ServerDeps struct {
	Victims     store.VictimsStore
	Admins      store.AdminsStore
	Perps       store.PerpetratorsStore
	AttackTypes store.AttackTypesStore
	Reports     store.ReportsStore
	Evidence    store.EvidenceStore
	Bin         store.RecycleBinStore
	Audits      store.AuditStore

	Accounts *auth.AccountsService
	Sessions *auth.SessionManager
	Intake   *intake.Service
	Review   *review.Service
	Rules    *escalation.Service
	Enforcer *rbac.Enforcer
}

// BackgroundWorker is anything started and stopped alongside the server.
type BackgroundWorker interface {
	StartWithContext(ctx context.Context) error
	StopWithContext(ctx context.Context) error
}

type Server struct {
	cfg      *config.AppConfig
	deps     ServerDeps
	logger   *utils.Logger
	sessions *auth.SessionManager
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	return &Server{cfg: cfg, deps: deps, logger: logger, sessions: deps.Sessions}
}

type routeHandlers struct {
	auth     *handlers.AuthHandler
	intake   *handlers.IntakeHandler
	review   *handlers.ReviewHandler
	bin      *handlers.RecycleBinHandler
	entities *handlers.EntitiesHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:     handlers.NewAuthHandler(s.cfg, s.deps.Accounts, s.deps.Sessions, s.logger),
		intake:   handlers.NewIntakeHandler(s.deps.Intake, s.deps.Reports, s.deps.Evidence, s.logger),
		review:   handlers.NewReviewHandler(s.deps.Review, s.deps.Reports, s.deps.Evidence, s.logger),
		bin:      handlers.NewRecycleBinHandler(s.deps.Review, s.deps.Bin, s.logger),
		entities: handlers.NewEntitiesHandler(s.deps.Victims, s.deps.Perps, s.deps.AttackTypes, s.deps.Audits, s.deps.Rules, s.logger),
	}
}

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	h := s.newRouteHandlers()
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.jsonMiddleware)
	r.Use(s.loggingMiddleware)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/victims/register", s.rateLimitMiddleware(h.auth.RegisterVictim))
		api.Post("/auth/victims/login", s.rateLimitMiddleware(h.auth.LoginVictim))
		api.Post("/auth/admins/login", s.rateLimitMiddleware(h.auth.LoginAdmin))
		api.Post("/auth/logout", s.withSession(h.auth.Logout))
		api.Get("/auth/me", s.withSession(h.auth.Me))

		api.Get("/attack-types", s.withSession(h.entities.ListAttackTypes))
		api.Post("/attack-types", s.requireAdmin(rbac.ObjAttackTypes, rbac.ActManage, h.entities.CreateAttackType))

		// Victim-facing intake and case views.
		api.Post("/reports", s.withVictimSession(h.intake.CreateReport))
		api.Get("/reports/mine", s.withVictimSession(h.intake.ListMine))
		api.Post("/reports/{id}/evidence", s.withVictimSession(h.intake.SubmitEvidence))

		// Admin review queues and actions.
		api.Get("/review/reports", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.ListReports))
		api.Get("/review/reports/pending", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.ListPendingReports))
		api.Post("/review/reports/{id}/validate", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.ValidateReport))
		api.Post("/review/reports/reject", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.RejectReports))
		api.Get("/review/reports/{id}", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.GetReport))
		api.Get("/review/evidence/pending", s.requireAdmin(rbac.ObjEvidence, rbac.ActReview, h.review.ListPendingEvidence))
		api.Post("/review/evidence/verify", s.requireAdmin(rbac.ObjEvidence, rbac.ActReview, h.review.VerifyEvidence))
		api.Post("/review/evidence/reject", s.requireAdmin(rbac.ObjEvidence, rbac.ActReview, h.review.RejectEvidence))
		api.Put("/review/reports/{id}/notes", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.SaveNote))
		api.Get("/review/reports/{id}/notes", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.GetNote))
		api.Delete("/review/reports/{id}/notes", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.review.DeleteNote))
		api.Delete("/review/reports/{id}", s.requireAdmin(rbac.ObjReports, rbac.ActManage, h.review.PurgeReport))

		// Recycle bin.
		api.Get("/recyclebin/reports", s.requireAdmin(rbac.ObjRecycleBin, rbac.ActRestore, h.bin.ListReports))
		api.Get("/recyclebin/evidence", s.requireAdmin(rbac.ObjRecycleBin, rbac.ActRestore, h.bin.ListEvidence))
		api.Post("/recyclebin/reports/restore", s.requireAdmin(rbac.ObjRecycleBin, rbac.ActRestore, h.bin.RestoreReports))
		api.Post("/recyclebin/evidence/restore", s.requireAdmin(rbac.ObjRecycleBin, rbac.ActRestore, h.bin.RestoreEvidence))

		// Perpetrator and victim administration.
		api.Get("/perpetrators", s.requireAdmin(rbac.ObjReports, rbac.ActReview, h.entities.ListPerpetrators))
		api.Post("/perpetrators/{id}/threat-level", s.requireAdmin(rbac.ObjPerpetrators, rbac.ActEscalate, h.entities.SetThreatLevel))
		api.Get("/perpetrators/{id}/log", s.requireAdmin(rbac.ObjAuditLog, rbac.ActRead, h.entities.ThreatLevelHistory))
		api.Get("/victims", s.requireAdmin(rbac.ObjVictims, rbac.ActRead, h.entities.ListVictims))
		api.Post("/victims/{id}/flag", s.requireAdmin(rbac.ObjVictims, rbac.ActFlag, h.entities.FlagVictim))
		api.Get("/victims/{id}/log", s.requireAdmin(rbac.ObjAuditLog, rbac.ActRead, h.entities.VictimStatusHistory))
		api.Get("/logs", s.requireAdmin(rbac.ObjAuditLog, rbac.ActRead, h.entities.ListAuditLog))
	})

	return r
}
