package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/video-stream/subbot/internal/api/middleware"
	"github.com/video-stream/subbot/internal/db"
	"github.com/video-stream/subbot/internal/subtitle/translate"
)

// ModelSource lists the Gemini models a key can use
type ModelSource interface {
	List(ctx context.Context, apiKey string) ([]translate.GeminiModel, error)
}

// CredentialGetter looks up a user's API key
type CredentialGetter interface {
	GetCredential(userID int64) (string, error)
}

type ModelsHandler struct {
	models ModelSource
	keys   CredentialGetter
}

func NewModelsHandler(models ModelSource, keys CredentialGetter) *ModelsHandler {
	return &ModelsHandler{models: models, keys: keys}
}

// ListModels fetches the Gemini text models available to the caller's key
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	apiKey, err := h.keys.GetCredential(middleware.UserID(r))
	if errors.Is(err, db.ErrNoCredential) {
		// Nothing to list until the user saves a key
		jsonResponse(w, []translate.GeminiModel{}, http.StatusOK)
		return
	}
	if err != nil {
		jsonError(w, "failed to load API key", http.StatusInternalServerError)
		return
	}

	models, err := h.models.List(r.Context(), apiKey)
	if err != nil {
		jsonError(w, "failed to fetch Gemini models: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, models, http.StatusOK)
}
