package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subbot/internal/api/middleware"
	"github.com/video-stream/subbot/internal/bot"
	"github.com/video-stream/subbot/internal/job"
)

// multipartSlack covers form boundaries and headers around the file itself
const multipartSlack = 64 << 10

// ChatBot is the conversation logic behind the chat routes
type ChatBot interface {
	HandleCommand(userID int64, name string) error
	HandleText(userID int64, text string) error
	HandleDocument(userID int64, fileName string, data []byte) (*job.Job, error)
}

type ChatHandler struct {
	bot       ChatBot
	maxUpload int64
}

func NewChatHandler(b ChatBot, maxUpload int64) *ChatHandler {
	return &ChatHandler{bot: b, maxUpload: maxUpload}
}

var accepted = map[string]string{"status": "accepted"}

// Command handles POST /api/commands/{name}
func (h *ChatHandler) Command(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.HandleCommand(middleware.UserID(r), chi.URLParam(r, "name")); err != nil {
		log.Printf("[bot] command: %v", err)
		jsonError(w, "failed to handle command", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, accepted, http.StatusAccepted)
}

type messageRequest struct {
	Text string `json:"text"`
}

// Message handles POST /api/messages
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.bot.HandleText(middleware.UserID(r), req.Text); err != nil {
		log.Printf("[bot] message: %v", err)
		jsonError(w, "failed to handle message", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, accepted, http.StatusAccepted)
}

// Document handles POST /api/documents with a multipart "file" field
func (h *ChatHandler) Document(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartSlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the bot to reject it
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		jsonError(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	j, err := h.bot.HandleDocument(middleware.UserID(r), header.Filename, data)
	switch {
	case err == nil:
		jsonResponse(w, j, http.StatusAccepted)
	case errors.Is(err, bot.ErrNeedCredential):
		jsonError(w, "set an API key first", http.StatusForbidden)
	case errors.Is(err, bot.ErrNotSubtitle):
		jsonError(w, "only .srt files are supported", http.StatusUnsupportedMediaType)
	case errors.Is(err, bot.ErrTooLarge):
		jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
	default:
		log.Printf("[bot] document: %v", err)
		jsonError(w, "failed to queue translation", http.StatusInternalServerError)
	}
}
