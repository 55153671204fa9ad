package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranslate JobType = "translate"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a queued subtitle translation
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	UserID      int64           `json:"user_id"`
	FileName    string          `json:"file_name"` // uploaded file name as declared by the client
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Finished reports whether the job reached a terminal state
func (j *Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed || j.Status == StatusCancelled
}

// TranslateParams are parameters for a translation job
type TranslateParams struct {
	Engine     string `json:"engine"`      // "gemini", "openai", "deepl"
	SourceLang string `json:"source_lang"` // "en"
	TargetLang string `json:"target_lang"` // "si", "ko", ...
	Preset     string `json:"preset"`      // "movie", "anime", "documentary", "custom"
	Strict     bool   `json:"strict"`      // reject files with malformed blocks
}

// TranslateResult is the output of a successful translation
type TranslateResult struct {
	OutputName string  `json:"output_name"` // file name of the translated subtitle
	Entries    int     `json:"entries"`
	Translated int     `json:"translated"`
	Fallback   int     `json:"fallback"` // entries that kept their original text
	Skipped    int     `json:"skipped"`  // malformed blocks dropped while parsing
	Duration   float64 `json:"duration"` // processing time in seconds
}

// Reporter lets a running handler publish progress and user-facing messages
type Reporter interface {
	Progress(fraction float64)
	Notify(message string)
}

// Listener is told about job messages and terminal outcomes.
type Listener interface {
	JobMessage(j *Job, message string)
	// JobFinished is called once per run; err is nil on success and
	// context.Canceled when the job was cancelled.
	JobFinished(j *Job, err error)
}

// JobHandler processes a job. The handler must return when ctx is cancelled.
type JobHandler func(ctx context.Context, job *Job, r Reporter) error
