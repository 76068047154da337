package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"phishnet/core/auth"
	"phishnet/core/store"
)

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// pathID parses the {id} route parameter, falling back to a path scan so
// handlers stay testable without a chi route context.
func pathID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(urlParam(r, "id"))
	if raw == "" {
		segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		for i := len(segments) - 1; i >= 0; i-- {
			if _, err := strconv.ParseInt(segments[i], 10, 64); err == nil {
				raw = segments[i]
				break
			}
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func sessionFrom(r *http.Request) *store.SessionRecord {
	if v := r.Context().Value(auth.SessionContextKey); v != nil {
		return v.(*store.SessionRecord)
	}
	return nil
}
