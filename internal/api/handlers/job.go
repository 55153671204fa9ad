package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subbot/internal/api/middleware"
	"github.com/video-stream/subbot/internal/job"
)

// JobStore is the part of the job queue the API needs
type JobStore interface {
	GetJob(id string) (*job.Job, error)
	ListJobs(userID int64) ([]*job.Job, error)
	CancelJob(id string) error
}

type JobHandler struct {
	queue JobStore
}

func NewJobHandler(queue JobStore) *JobHandler {
	return &JobHandler{queue: queue}
}

// ownedJob loads a job and answers 404 unless it belongs to the caller
func ownedJob(w http.ResponseWriter, r *http.Request, store JobStore, id string) (*job.Job, bool) {
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return nil, false
	}
	j, err := store.GetJob(id)
	if errors.Is(err, job.ErrNotFound) || (err == nil && j.UserID != middleware.UserID(r)) {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	return j, true
}

// ListJobs returns the caller's jobs, newest first
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.ListJobs(middleware.UserID(r))
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	jsonResponse(w, jobs, http.StatusOK)
}

// GetJob returns a single job by ID
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := ownedJob(w, r, h.queue, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	jsonResponse(w, j, http.StatusOK)
}

// CancelJob cancels a pending or running job
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	j, ok := ownedJob(w, r, h.queue, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if j.Finished() {
		jsonError(w, "job already "+string(j.Status), http.StatusConflict)
		return
	}

	if err := h.queue.CancelJob(j.ID); err != nil {
		jsonError(w, "failed to cancel job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
