package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleGetLesson returns a stored conversion result.
func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "content store not configured", http.StatusServiceUnavailable)
		return
	}
	key := s.store.Key(chi.URLParam(r, "lessonID"), chi.URLParam(r, "lang"))
	doc, err := s.store.GetDocument(r.Context(), key)
	if err != nil {
		s.log.Error("get lesson failed", "key", key, "error", err)
		jsonError(w, "failed to read lesson: "+err.Error(), http.StatusBadGateway)
		return
	}
	if doc == nil {
		jsonError(w, "lesson not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(doc.Value)
}

// handleDeleteLesson removes a stored conversion result.
func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "content store not configured", http.StatusServiceUnavailable)
		return
	}
	key := s.store.Key(chi.URLParam(r, "lessonID"), chi.URLParam(r, "lang"))
	if err := s.store.DeleteDocument(r.Context(), key); err != nil {
		s.log.Error("delete lesson failed", "key", key, "error", err)
		jsonError(w, "failed to delete lesson: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": key})
}
