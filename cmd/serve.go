package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/video-stream/subbot/internal/api"
	"github.com/video-stream/subbot/internal/api/middleware"
	"github.com/video-stream/subbot/internal/auth"
	"github.com/video-stream/subbot/internal/bot"
	"github.com/video-stream/subbot/internal/config"
	"github.com/video-stream/subbot/internal/job"
	"github.com/video-stream/subbot/internal/storage"
	"github.com/video-stream/subbot/internal/subtitle/translate"
)

const (
	apiRequestsPerMinute = 120
	apiBurst             = 30
	shutdownTimeout      = 15 * time.Second
)

func newServeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat API and the translation worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// serviceConfig maps the [translate] section onto the translation service
func serviceConfig(cfg *config.Config) translate.ServiceConfig {
	t := cfg.Translate
	return translate.ServiceConfig{
		Defaults: translate.Options{
			SourceLang:   t.SourceLang,
			TargetLang:   t.TargetLang,
			Preset:       t.Preset,
			CustomPrompt: t.CustomPrompt,
			Model:        t.Model,
		},
		Workers:         t.Workers,
		ProgressEvery:   t.ProgressEvery,
		RateLimitPerMin: t.RateLimitPerMin,
		MaxRetries:      t.MaxRetries,
		OutputPrefix:    t.OutputPrefix,
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// One process owns the queue and the upload tree
	lock := flock.New(filepath.Join(cfg.DataPath, "subbot.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another subbot instance is serving %s", cfg.DataPath)
	}
	defer lock.Unlock()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	files, err := storage.NewStore(cfg.UploadPath)
	if err != nil {
		return fmt.Errorf("open upload store: %w", err)
	}

	svc := translate.NewService(serviceConfig(cfg), database, files, func() string {
		return database.GetSetting(geminiModelSetting, "")
	})
	if !svc.HasEngine(cfg.Translate.Engine) {
		return fmt.Errorf("unknown translation engine: %s", cfg.Translate.Engine)
	}

	queue := job.NewJobQueue(database.DB())
	queue.RegisterHandler(job.JobTranslate, svc.HandleJob)

	params := svc.DefaultParams(cfg.Translate.Engine)
	params.Strict = cfg.Parse.Strict
	chat := bot.New(bot.Config{
		KeyPrefix:      cfg.Bot.KeyPrefix,
		MaxUploadBytes: cfg.Bot.MaxUploadBytes,
		Params:         params,
	}, bot.NewOutbox(database), database, queue, files)
	queue.SetListener(chat)
	queue.Start()
	defer queue.Stop()

	limiter := middleware.NewRateLimiter(apiRequestsPerMinute, apiBurst)
	stopSweeper := make(chan struct{})
	defer close(stopSweeper)
	go limiter.RunSweeper(time.Minute, stopSweeper)

	router := api.NewRouter(api.Deps{
		Database:    database,
		Tokens:      auth.NewJWTService(cfg.JWTSecret),
		Chat:        chat,
		Jobs:        queue,
		Results:     files,
		Models:      translate.NewModelLister(),
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		MaxUpload:   cfg.Bot.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.Listen)
		log.Printf("Data path: %s, engine: %s, %s->%s",
			cfg.DataPath, cfg.Translate.Engine, cfg.Translate.SourceLang, cfg.Translate.TargetLang)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
	return nil
}
