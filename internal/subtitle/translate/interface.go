package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Options configures prompt construction for the LLM engines
type Options struct {
	SourceLang   string `json:"source_lang" toml:"source_lang"`
	TargetLang   string `json:"target_lang" toml:"target_lang"`
	Preset       string `json:"preset" toml:"preset"`               // "movie", "anime", "documentary", "custom"
	CustomPrompt string `json:"custom_prompt" toml:"custom_prompt"` // for "custom" preset
	Model        string `json:"model,omitempty" toml:"model"`
}

// Translator is the common interface for all translation engines.
// Implementations report every failure as a *TranslationError.
type Translator interface {
	// Translate rewrites a single caption text using the caller's credential
	Translate(ctx context.Context, text, credential string) (string, error)
	// Name returns the engine name
	Name() string
}

// ErrEmptyTranslation is reported when an engine answers with no usable text.
var ErrEmptyTranslation = errors.New("empty translation")

// TranslationError is the single failure outcome of a translate call.
type TranslationError struct {
	Engine     string
	StatusCode int // HTTP status when the engine answered, 0 otherwise
	Err        error
}

func (e *TranslationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Engine, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same request may succeed.
func (e *TranslationError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return true
	case 0:
		return isRetryableError(e.Err)
	}
	return false
}

func failure(engine string, status int, err error) *TranslationError {
	return &TranslationError{Engine: engine, StatusCode: status, Err: err}
}
