package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/video-stream/subbot/internal/storage"
	"github.com/video-stream/subbot/internal/subtitle/srt"
	"github.com/video-stream/subbot/internal/subtitle/translate"
)

// keyEnv names the environment variable consulted when --key is not given
var keyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
	"deepl":  "DEEPL_API_KEY",
}

type translateRequest struct {
	InputPath  string
	OutputPath string
	Engine     string
	Key        string
	Options    translate.Options
	Strict     bool
}

type translateSummary struct {
	OutputPath string
	Stats      translate.Stats
	Skipped    int
}

func newTranslateCommand(o *options) *cobra.Command {
	var (
		output string
		key    string
		engine string
		target string
		model  string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "translate <file.srt>",
		Short: "Translate a subtitle file locally without the chat API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if engine == "" {
				engine = cfg.Translate.Engine
			}
			svc := translate.NewService(serviceConfig(cfg), nil, nil, nil)
			if !svc.HasEngine(engine) {
				return fmt.Errorf("unknown translation engine: %s", engine)
			}
			if key == "" {
				key = os.Getenv(keyEnv[engine])
			}
			if key == "" {
				return fmt.Errorf("an API key is required: pass --key or set %s", keyEnv[engine])
			}

			req := translateRequest{
				InputPath:  args[0],
				OutputPath: output,
				Engine:     engine,
				Key:        key,
				Options:    serviceConfig(cfg).Defaults,
				Strict:     strict || cfg.Parse.Strict,
			}
			if target != "" {
				req.Options.TargetLang = target
			}
			if model != "" {
				req.Options.Model = model
			}
			if req.OutputPath == "" {
				req.OutputPath = defaultOutputPath(cfg.Translate.OutputPrefix, req.InputPath)
			}

			progress, finish := progressReporter(cmd.ErrOrStderr())
			summary, err := translateFile(cmd.Context(), svc, req, progress)
			finish()
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: <prefix>_<input> next to the input)")
	cmd.Flags().StringVar(&key, "key", "", "engine API key (default: $GEMINI_API_KEY, $OPENAI_API_KEY or $DEEPL_API_KEY)")
	cmd.Flags().StringVarP(&engine, "engine", "e", "", "translation engine: gemini, openai, deepl")
	cmd.Flags().StringVarP(&target, "target", "t", "", "target language code")
	cmd.Flags().StringVar(&model, "model", "", "model override for the LLM engines")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject files containing malformed blocks")
	return cmd
}

func defaultOutputPath(prefix, input string) string {
	if prefix == "" {
		prefix = "translated"
	}
	return filepath.Join(filepath.Dir(input), translate.OutputName(prefix, filepath.Base(input)))
}

func translateFile(ctx context.Context, svc *translate.Service, req translateRequest, progress translate.ProgressFunc) (translateSummary, error) {
	summary := translateSummary{OutputPath: req.OutputPath}

	if !storage.IsSubtitleFile(req.InputPath) {
		return summary, fmt.Errorf("%s is not a .srt file", req.InputPath)
	}
	if sameFile(req.InputPath, req.OutputPath) {
		return summary, errors.New("output would overwrite the input file")
	}

	pipeline, err := svc.NewPipeline(req.Engine, req.Options)
	if err != nil {
		return summary, err
	}

	data, err := os.ReadFile(req.InputPath)
	if err != nil {
		return summary, fmt.Errorf("read subtitle: %w", err)
	}
	doc, skipped, err := translate.ReadDocument(data, req.Strict, filepath.Base(req.InputPath))
	summary.Skipped = skipped
	if err != nil {
		return summary, err
	}
	log.Printf("[translate] %s: %d entries, engine=%s %s->%s",
		filepath.Base(req.InputPath), len(doc), req.Engine, req.Options.SourceLang, req.Options.TargetLang)

	translated, stats, err := pipeline.Run(ctx, doc, req.Key, progress)
	summary.Stats = stats
	if err != nil {
		return summary, fmt.Errorf("translate: %w", err)
	}

	if err := os.WriteFile(req.OutputPath, []byte(srt.Serialize(translated)), 0644); err != nil {
		return summary, fmt.Errorf("write output: %w", err)
	}
	return summary, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// progressReporter draws a progress bar on terminals and logs plain lines otherwise
func progressReporter(w io.Writer) (translate.ProgressFunc, func()) {
	if f, ok := w.(*os.File); !ok || !isTerminal(f.Fd()) {
		return func(done, total int) {
			log.Printf("[translate] translated %d/%d", done, total)
		}, func() {}
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("translating"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Set(done)
	}
	finish := func() {
		if bar != nil {
			bar.Finish()
		}
	}
	return progress, finish
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printSummary(w io.Writer, s translateSummary) {
	var b strings.Builder
	fmt.Fprintf(&b, "Translated %d/%d entries", s.Stats.Translated, s.Stats.Total)
	if s.Stats.Fallback > 0 {
		fmt.Fprintf(&b, ", %d kept original text", s.Stats.Fallback)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %d malformed blocks skipped", s.Skipped)
	}
	fmt.Fprintf(&b, "\nWrote %s\n", s.OutputPath)
	io.WriteString(w, b.String())
}
