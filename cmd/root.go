package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/video-stream/subbot/internal/auth"
	"github.com/video-stream/subbot/internal/config"
	"github.com/video-stream/subbot/internal/db"
)

// geminiModelSetting holds the operator's Gemini model override
const geminiModelSetting = "gemini_model"

type options struct {
	configPath string
}

func (o *options) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

func newRootCommand() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "subbot",
		Short: "Subtitle translation bot",
		Long: `subbot receives .srt files from chat users over an HTTP API, translates
every caption into the target language with the user's own API key and
delivers the translated file back into the conversation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "configuration file (default ./"+config.DefaultFile+" when present)")

	rootCmd.AddCommand(newServeCommand(o))
	rootCmd.AddCommand(newTranslateCommand(o))
	rootCmd.AddCommand(newTokenCommand(o))
	rootCmd.AddCommand(newJobsCommand(o))
	rootCmd.AddCommand(newModelCommand(o))
	return rootCmd
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// openDatabase opens the sqlite store, sealing API keys when a credential secret is configured
func openDatabase(cfg *config.Config) (*db.Database, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	var opts []db.Option
	if cfg.CredentialSecret != "" {
		sealer, err := auth.NewSealer(cfg.CredentialSecret)
		if err != nil {
			return nil, err
		}
		opts = append(opts, db.WithSealer(sealer))
	}
	database, err := db.NewSQLite(cfg.DBPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}
