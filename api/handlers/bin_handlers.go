package handlers

import (
	"net/http"

	"phishnet/core/review"
	"phishnet/core/store"
	"phishnet/core/utils"
)

type RecycleBinHandler struct {
	review *review.Service
	bin    store.RecycleBinStore
	logger *utils.Logger
}

func NewRecycleBinHandler(svc *review.Service, bin store.RecycleBinStore, logger *utils.Logger) *RecycleBinHandler {
	return &RecycleBinHandler{review: svc, bin: bin, logger: logger}
}

func (h *RecycleBinHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	items, err := h.bin.ListArchivedReports(r.Context())
	if err != nil {
		h.logger.Errorf("list archived reports: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *RecycleBinHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	items, err := h.bin.ListArchivedEvidence(r.Context())
	if err != nil {
		h.logger.Errorf("list archived evidence: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *RecycleBinHandler) RestoreReports(w http.ResponseWriter, r *http.Request) {
	var in bulkIDsPayload
	if err := decodeJSON(r, &in); err != nil || len(in.IDs) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	result := h.review.RestoreReports(r.Context(), in.IDs, sr.SubjectID)
	writeJSON(w, http.StatusOK, result)
}

func (h *RecycleBinHandler) RestoreEvidence(w http.ResponseWriter, r *http.Request) {
	var in bulkIDsPayload
	if err := decodeJSON(r, &in); err != nil || len(in.IDs) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	result := h.review.RestoreEvidence(r.Context(), in.IDs, sr.SubjectID)
	writeJSON(w, http.StatusOK, result)
}
