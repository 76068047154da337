package handlers

import (
	"errors"
	"net/http"
	"strings"

	"phishnet/core/review"
	"phishnet/core/store"
	"phishnet/core/utils"
)

type ReviewHandler struct {
	review   *review.Service
	reports  store.ReportsStore
	evidence store.EvidenceStore
	logger   *utils.Logger
}

func NewReviewHandler(svc *review.Service, reports store.ReportsStore, evidence store.EvidenceStore, logger *utils.Logger) *ReviewHandler {
	return &ReviewHandler{review: svc, reports: reports, evidence: evidence, logger: logger}
}

type bulkIDsPayload struct {
	IDs    []int64 `json:"ids"`
	Reason string  `json:"reason,omitempty"`
}

func (h *ReviewHandler) ListPendingReports(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.ListPendingReports(r.Context())
	if err != nil {
		h.logger.Errorf("list pending reports: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ListReports serves the status-filtered queues the review screens page
// through; no filter means the pending queue.
func (h *ReviewHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		h.ListPendingReports(w, r)
		return
	}
	switch status {
	case store.ReportPending, store.ReportValidated, store.ReportRejected:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}
	items, err := h.reports.ListReportsByStatus(r.Context(), status)
	if err != nil {
		h.logger.Errorf("list reports by status %s: %v", status, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ReviewHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad report id", http.StatusBadRequest)
		return
	}
	d, err := h.reports.GetReportDetail(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	evidence, err := h.evidence.ListEvidenceByIncident(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": d, "evidence": evidence})
}

func (h *ReviewHandler) ValidateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad report id", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	if err := h.review.ValidateReport(r.Context(), id, sr.SubjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": store.ReportValidated})
}

func (h *ReviewHandler) RejectReports(w http.ResponseWriter, r *http.Request) {
	var in bulkIDsPayload
	if err := decodeJSON(r, &in); err != nil || len(in.IDs) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	result := h.review.RejectReports(r.Context(), in.IDs, sr.SubjectID, in.Reason)
	writeJSON(w, http.StatusOK, result)
}

func (h *ReviewHandler) ListPendingEvidence(w http.ResponseWriter, r *http.Request) {
	items, err := h.evidence.ListPendingEvidence(r.Context())
	if err != nil {
		h.logger.Errorf("list pending evidence: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ReviewHandler) VerifyEvidence(w http.ResponseWriter, r *http.Request) {
	var in bulkIDsPayload
	if err := decodeJSON(r, &in); err != nil || len(in.IDs) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	result := h.review.VerifyEvidence(r.Context(), in.IDs, sr.SubjectID)
	writeJSON(w, http.StatusOK, result)
}

func (h *ReviewHandler) RejectEvidence(w http.ResponseWriter, r *http.Request) {
	var in bulkIDsPayload
	if err := decodeJSON(r, &in); err != nil || len(in.IDs) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	result := h.review.RejectEvidence(r.Context(), in.IDs, sr.SubjectID, in.Reason)
	writeJSON(w, http.StatusOK, result)
}

type notePayload struct {
	Notes string `json:"notes"`
}

func (h *ReviewHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad report id", http.StatusBadRequest)
		return
	}
	var in notePayload
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	if err := h.review.SaveEvaluationNote(r.Context(), id, sr.SubjectID, in.Notes); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *ReviewHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad report id", http.StatusBadRequest)
		return
	}
	n, err := h.review.GetEvaluationNote(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"notes": ""})
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *ReviewHandler) PurgeReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad report id", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	err := h.review.PurgeReport(r.Context(), id, sr.SubjectID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, store.ErrConflict) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func (h *ReviewHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad report id", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	if err := h.review.DeleteEvaluationNote(r.Context(), id, sr.SubjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
