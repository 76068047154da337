package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"phishnet/core/escalation"
	"phishnet/core/store"
	"phishnet/core/utils"
)

type EntitiesHandler struct {
	victims     store.VictimsStore
	perps       store.PerpetratorsStore
	attackTypes store.AttackTypesStore
	audits      store.AuditStore
	rules       *escalation.Service
	logger      *utils.Logger
}

func NewEntitiesHandler(victims store.VictimsStore, perps store.PerpetratorsStore, attackTypes store.AttackTypesStore, audits store.AuditStore, rules *escalation.Service, logger *utils.Logger) *EntitiesHandler {
	return &EntitiesHandler{
		victims:     victims,
		perps:       perps,
		attackTypes: attackTypes,
		audits:      audits,
		rules:       rules,
		logger:      logger,
	}
}

func (h *EntitiesHandler) ListAttackTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.attackTypes.ListAttackTypes(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type attackTypePayload struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	SeverityLevel string `json:"severity_level"`
}

func (h *EntitiesHandler) CreateAttackType(w http.ResponseWriter, r *http.Request) {
	var in attackTypePayload
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	at := &store.AttackType{Name: in.Name, Description: in.Description, SeverityLevel: in.SeverityLevel}
	id, err := h.attackTypes.CreateAttackType(r.Context(), at)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.attackTypes.GetAttackType(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *EntitiesHandler) ListVictims(w http.ResponseWriter, r *http.Request) {
	items, err := h.victims.ListVictims(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *EntitiesHandler) ListPerpetrators(w http.ResponseWriter, r *http.Request) {
	items, err := h.perps.ListPerpetrators(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type threatLevelPayload struct {
	Level string `json:"level"`
}

func (h *EntitiesHandler) SetThreatLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad perpetrator id", http.StatusBadRequest)
		return
	}
	var in threatLevelPayload
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	if err := h.rules.SetThreatLevel(r.Context(), id, sr.SubjectID, strings.TrimSpace(in.Level)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *EntitiesHandler) ThreatLevelHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad perpetrator id", http.StatusBadRequest)
		return
	}
	items, err := h.audits.ListThreatLevelChanges(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *EntitiesHandler) FlagVictim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad victim id", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	err := h.rules.FlagVictim(r.Context(), id, sr.SubjectID, utils.NowUTC())
	if errors.Is(err, escalation.ErrNotEnoughIncidents) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": store.AccountFlagged})
}

func (h *EntitiesHandler) VictimStatusHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad victim id", http.StatusBadRequest)
		return
	}
	items, err := h.audits.ListVictimStatusChanges(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *EntitiesHandler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	items, err := h.audits.ListActions(r.Context(), limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
