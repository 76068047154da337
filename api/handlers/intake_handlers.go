package handlers

import (
	"errors"
	"net/http"

	"phishnet/core/intake"
	"phishnet/core/store"
	"phishnet/core/utils"
)

type IntakeHandler struct {
	intake   *intake.Service
	reports  store.ReportsStore
	evidence store.EvidenceStore
	logger   *utils.Logger
}

func NewIntakeHandler(svc *intake.Service, reports store.ReportsStore, evidence store.EvidenceStore, logger *utils.Logger) *IntakeHandler {
	return &IntakeHandler{intake: svc, reports: reports, evidence: evidence, logger: logger}
}

func (h *IntakeHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	var in intake.CreateReportInput
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	// The session decides whose report this is; the payload cannot file
	// on someone else's behalf.
	in.VictimID = sr.SubjectID
	result, err := h.intake.CreateIncidentReport(r.Context(), in)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *IntakeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	items, err := h.reports.ListReportsByVictim(r.Context(), sr.SubjectID)
	if err != nil {
		h.logger.Errorf("list reports for victim %d: %v", sr.SubjectID, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *IntakeHandler) SubmitEvidence(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	reportID, ok := pathID(r)
	if !ok {
		http.Error(w, "bad report id", http.StatusBadRequest)
		return
	}
	report, err := h.reports.GetReport(r.Context(), reportID)
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	if report.VictimID != sr.SubjectID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var in intake.SubmitEvidenceInput
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	in.IncidentID = reportID
	id, err := h.intake.SubmitEvidence(r.Context(), in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"evidence_id": id})
}
