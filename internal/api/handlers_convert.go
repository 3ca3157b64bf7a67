package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/lessongest/internal/pipeline"
)

// handleConvert queues an asynchronous conversion of a primary document and
// an optional secondary-language document.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.Server.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	primary, status, err := s.readUpload(r, "primary")
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	var secondary *pipeline.Document
	if files := r.MultipartForm.File["secondary"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			jsonError(w, "failed to open secondary file", http.StatusBadRequest)
			return
		}
		secondary, status, err = s.readFile(f, files[0])
		f.Close()
		if err != nil {
			jsonError(w, "secondary: "+err.Error(), status)
			return
		}
	}

	job := pipeline.NewJob(r.FormValue("lesson_id"), r.FormValue("lang"), *primary, secondary)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    job.ID,
		"lesson_id": job.LessonID,
		"status":    pipeline.StatusQueued,
		"poll_url":  fmt.Sprintf("/api/convert/%s/status", job.ID),
	})
}

func (s *Server) handleConvertStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleConvertResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res := job.Result()
	if res == nil {
		snap := job.Snapshot()
		if snap.Status == pipeline.StatusFailed {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "conversion failed",
				"phase":  snap.Phase,
				"errors": snap.Progress.Errors,
			})
			return
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "conversion not finished",
			"status": snap.Status,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
