package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gmvsync/internal/core"
	"github.com/JonMunkholm/gmvsync/internal/logging"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 64 * 1024

// StartRunRequest is the body of POST /api/runs. An empty folder runs the
// newest import folder.
type StartRunRequest struct {
	Folder string `json:"folder"`
}

// StartRunResponse is returned for an accepted run.
type StartRunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}

	// the run continues after the response; Start detaches it
	var (
		id  string
		err error
	)
	if req.Folder == "" {
		id, err = s.service.RunLatest(r.Context(), core.TriggerAPI)
	} else {
		id, err = s.service.Start(r.Context(), req.Folder, core.TriggerAPI)
	}
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Info("run accepted", "run_id", id, "folder", req.Folder, "request_id", requestID(r))
	w.Header().Set("Location", "/api/runs/"+id)
	writeJSON(w, http.StatusAccepted, StartRunResponse{ID: id, Status: string(core.StatusRunning)})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	runs, err := s.service.List(ctx, parseIntParam(r, "limit", core.DefaultHistoryLimit))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rec, err := s.service.Get(ctx, chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRunLog streams the run log file of a run.
func (s *Server) handleRunLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := chi.URLParam(r, "runID")
	rec, err := s.service.Get(ctx, id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if rec.LogPath == "" || !within(s.service.BaseFolder(), rec.LogPath) {
		s.respondError(w, r, fmt.Errorf("%w: run %s has no log", core.ErrRunNotFound, id), http.StatusNotFound)
		return
	}

	f, err := os.Open(rec.LogPath)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: log of run %s: %v", core.ErrRunNotFound, id, err), http.StatusNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(rec.LogPath)))
	http.ServeContent(w, r, filepath.Base(rec.LogPath), fi.ModTime(), f)
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.service.Folders()
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if folders == nil {
		folders = []core.Folder{}
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// within reports whether path lies below base.
func within(base, path string) bool {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absBase, absPath)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
