package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/video-stream/subbot/internal/job"
	"github.com/video-stream/subbot/internal/subtitle/srt"
)

// CredentialStore looks up the API key a user registered
type CredentialStore interface {
	GetCredential(userID int64) (string, error)
}

// FileStore holds job uploads and results
type FileStore interface {
	ReadUpload(jobID, name string) ([]byte, error)
	SaveResult(jobID, name string, data []byte) error
	RemoveUpload(jobID, name string) error
}

// EngineFactory builds a translator for one job's options
type EngineFactory func(opts Options) Translator

// ServiceConfig holds the knobs shared by every translation job
type ServiceConfig struct {
	Defaults        Options
	Workers         int
	ProgressEvery   int
	RateLimitPerMin int
	MaxRetries      int
	OutputPrefix    string
}

// Service manages translation engines and processes translation jobs
type Service struct {
	cfg     ServiceConfig
	engines map[string]EngineFactory
	store   CredentialStore
	files   FileStore
	limiter *rate.Limiter
}

// NewService creates a translation service with the gemini, openai and deepl engines
func NewService(cfg ServiceConfig, store CredentialStore, files FileStore, geminiModelResolver ModelResolver) *Service {
	if cfg.OutputPrefix == "" {
		cfg.OutputPrefix = "translated"
	}
	s := &Service{
		cfg:     cfg,
		engines: make(map[string]EngineFactory),
		store:   store,
		files:   files,
		limiter: NewRateLimiter(cfg.RateLimitPerMin),
	}

	s.Register("gemini", func(opts Options) Translator {
		return NewGeminiTranslator(opts, geminiModelResolver)
	})
	s.Register("openai", func(opts Options) Translator {
		return NewOpenAITranslator(opts)
	})
	s.Register("deepl", func(opts Options) Translator {
		return NewDeepLTranslator(opts)
	})
	return s
}

// Register adds or replaces an engine
func (s *Service) Register(name string, factory EngineFactory) {
	s.engines[name] = factory
	log.Printf("[translate] registered %s engine", name)
}

// HasEngine reports whether name is a registered engine
func (s *Service) HasEngine(name string) bool {
	_, ok := s.engines[name]
	return ok
}

// DefaultParams returns job parameters filled from the service defaults
func (s *Service) DefaultParams(engine string) job.TranslateParams {
	return job.TranslateParams{
		Engine:     engine,
		SourceLang: s.cfg.Defaults.SourceLang,
		TargetLang: s.cfg.Defaults.TargetLang,
		Preset:     s.cfg.Defaults.Preset,
	}
}

// NewPipeline builds the pipeline a job with opts would run, wired to the shared rate limiter
func (s *Service) NewPipeline(engine string, opts Options) (*Pipeline, error) {
	factory, ok := s.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown translation engine: %s", engine)
	}
	t := NewLimited(factory(opts), s.limiter, s.cfg.MaxRetries)
	return NewPipeline(t, WithWorkers(s.cfg.Workers), WithProgressEvery(s.cfg.ProgressEvery)), nil
}

// HandleJob processes a translation job
func (s *Service) HandleJob(ctx context.Context, j *job.Job, r job.Reporter) error {
	started := time.Now()

	var params job.TranslateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}

	opts := s.cfg.Defaults
	if params.SourceLang != "" {
		opts.SourceLang = params.SourceLang
	}
	if params.TargetLang != "" {
		opts.TargetLang = params.TargetLang
	}
	if params.Preset != "" {
		opts.Preset = params.Preset
	}

	pipeline, err := s.NewPipeline(params.Engine, opts)
	if err != nil {
		return err
	}

	data, err := s.files.ReadUpload(j.ID, j.FileName)
	if err != nil {
		return fmt.Errorf("load subtitle: %w", err)
	}
	defer func() {
		// An interrupted job runs again after restart and needs its upload
		if job.Interrupted(ctx) {
			return
		}
		if err := s.files.RemoveUpload(j.ID, j.FileName); err != nil {
			log.Printf("[translate] job %s: remove upload: %v", j.ID, err)
		}
	}()

	doc, skipped, err := ReadDocument(data, params.Strict, "job "+j.ID)
	if err != nil {
		return err
	}

	credential, err := s.store.GetCredential(j.UserID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	log.Printf("[translate] translating %d entries: job=%s engine=%s %s->%s preset=%s",
		len(doc), j.ID, params.Engine, opts.SourceLang, opts.TargetLang, opts.Preset)
	r.Notify(fmt.Sprintf("📝 Found %d subtitles.\n🔄 Starting translation... This may take a few minutes.", len(doc)))

	translated, stats, err := pipeline.Run(ctx, doc, credential, func(done, total int) {
		r.Progress(float64(done) / float64(total))
		r.Notify(fmt.Sprintf("⏳ Translated %d/%d...", done, total))
	})
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}

	outName := OutputName(s.cfg.OutputPrefix, j.FileName)
	if err := s.files.SaveResult(j.ID, outName, []byte(srt.Serialize(translated))); err != nil {
		return fmt.Errorf("save translated subtitle: %w", err)
	}
	if stats.Fallback > 0 {
		log.Printf("[translate] WARNING: job %s: %d/%d entries kept original text", j.ID, stats.Fallback, stats.Total)
	}
	log.Printf("[translate] translation complete: job=%s output=%s", j.ID, outName)

	resultJSON, err := json.Marshal(job.TranslateResult{
		OutputName: outName,
		Entries:    stats.Total,
		Translated: stats.Translated,
		Fallback:   stats.Fallback,
		Skipped:    skipped,
		Duration:   time.Since(started).Seconds(),
	})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	j.Result = resultJSON
	return nil
}

// OutputName is the file name the translated subtitle is delivered under
func OutputName(prefix, fileName string) string {
	prefix = strings.TrimSuffix(prefix, "_")
	if prefix == "" {
		return fileName
	}
	return prefix + "_" + fileName
}
