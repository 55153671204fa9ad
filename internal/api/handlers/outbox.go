package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subbot/internal/api/middleware"
	"github.com/video-stream/subbot/internal/db/models"
	"github.com/video-stream/subbot/internal/job"
)

// MessageLister reads a user's queued replies
type MessageLister interface {
	ListMessages(userID, afterID int64, limit int) ([]models.OutboxMessage, error)
}

// ResultReader reads translated files
type ResultReader interface {
	ReadResult(jobID, name string) ([]byte, error)
}

type OutboxHandler struct {
	messages MessageLister
	jobs     JobStore
	results  ResultReader
}

func NewOutboxHandler(messages MessageLister, jobs JobStore, results ResultReader) *OutboxHandler {
	return &OutboxHandler{messages: messages, jobs: jobs, results: results}
}

// List handles GET /api/outbox?after=ID&limit=N
func (h *OutboxHandler) List(w http.ResponseWriter, r *http.Request) {
	after, err := queryInt(r, "after")
	if err != nil {
		jsonError(w, "invalid after parameter", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		jsonError(w, "invalid limit parameter", http.StatusBadRequest)
		return
	}

	msgs, err := h.messages.ListMessages(middleware.UserID(r), after, int(limit))
	if err != nil {
		jsonError(w, "failed to load messages", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, msgs, http.StatusOK)
}

// Result handles GET /api/results/{jobID}, sending the translated subtitle
func (h *OutboxHandler) Result(w http.ResponseWriter, r *http.Request) {
	j, ok := ownedJob(w, r, h.jobs, chi.URLParam(r, "jobID"))
	if !ok {
		return
	}
	if j.Status != job.StatusCompleted {
		jsonError(w, "translation not finished", http.StatusConflict)
		return
	}

	var res job.TranslateResult
	if err := json.Unmarshal(j.Result, &res); err != nil || res.OutputName == "" {
		jsonError(w, "job has no result", http.StatusNotFound)
		return
	}
	data, err := h.results.ReadResult(j.ID, res.OutputName)
	if err != nil {
		jsonError(w, "result file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename*=UTF-8''`+url.PathEscape(res.OutputName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func queryInt(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
