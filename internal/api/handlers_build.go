package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/parser"
	"github.com/dgallion1/lessongest/internal/pipeline"
	"github.com/dgallion1/lessongest/internal/resolve"
)

type mergeRequest struct {
	Primary   []doctree.Node `json:"primary"`
	Secondary []doctree.Node `json:"secondary"`
}

type resolveRequest struct {
	Bundle *resolve.Bundle `json:"bundle"`
	Lang   resolve.Lang    `json:"lang"`
}

// handleBuild parses one uploaded document and returns its tree.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, status, err := s.readUpload(r, "file")
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	res, err := s.orchestrator.NewWorker().BuildDocument(r.Context(), nil, doc.Filename, doc.Data)
	if err != nil {
		jsonError(w, "build failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleMerge merges two JSON trees.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decodeJSON(w, r, s.cfg.Server.MaxUploadBytes, &req) {
		return
	}
	nodes, stats, err := s.orchestrator.Engine().MergeWithStats(req.Primary, req.Secondary)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	if nodes == nil {
		nodes = []doctree.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "stats": stats})
}

// handleResolve assembles a bundle for one language.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, s.cfg.Server.MaxUploadBytes, &req) {
		return
	}
	payload, err := s.resolver.Resolve(req.Bundle, req.Lang)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, doctree.ErrInvalidNode),
		errors.Is(err, resolve.ErrMissingField),
		errors.Is(err, resolve.ErrNoPrimary):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// readUpload reads one multipart file field. The returned status is the
// HTTP code to answer with when err is non-nil.
func (s *Server) readUpload(r *http.Request, field string) (*pipeline.Document, int, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, http.StatusBadRequest, fmt.Errorf("%s is required", field)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("%s: %w", field, err)
	}
	defer file.Close()
	return s.readFile(file, header)
}

func (s *Server) readFile(file multipart.File, header *multipart.FileHeader) (*pipeline.Document, int, error) {
	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.Server.MaxUploadBytes+1))
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.Server.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.Server.MaxUploadBytes)
	}
	return &pipeline.Document{Filename: filename, Data: data}, http.StatusOK, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
