package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/video-stream/subbot/internal/subtitle/translate"
)

func newModelCommand(o *options) *cobra.Command {
	var (
		reset bool
		list  bool
		key   string
	)

	cmd := &cobra.Command{
		Use:   "model [name]",
		Short: "Show or set the Gemini model used by the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				if key == "" {
					key = os.Getenv(keyEnv["gemini"])
				}
				if key == "" {
					return fmt.Errorf("listing models needs a Gemini key: pass --key or set %s", keyEnv["gemini"])
				}
				return listModels(cmd.Context(), translate.NewModelLister(), key, out)
			}

			database, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			switch {
			case reset:
				if err := database.SetSetting(geminiModelSetting, ""); err != nil {
					return err
				}
				fmt.Fprintln(out, "Gemini model override cleared")
			case len(args) == 1:
				if err := database.SetSetting(geminiModelSetting, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Gemini model set to %s\n", args[0])
			default:
				current := database.GetSetting(geminiModelSetting, "")
				if current == "" {
					current = cfg.Translate.Model
				}
				if current == "" {
					current = "(engine default)"
				}
				fmt.Fprintln(out, current)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "clear", false, "remove the override")
	cmd.Flags().BoolVar(&list, "list", false, "list the models a Gemini key can use")
	cmd.Flags().StringVar(&key, "key", "", "Gemini API key for --list (default: $GEMINI_API_KEY)")
	return cmd
}

type modelSource interface {
	List(ctx context.Context, apiKey string) ([]translate.GeminiModel, error)
}

func listModels(ctx context.Context, src modelSource, key string, out io.Writer) error {
	models, err := src.List(ctx, key)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{m.ID, m.DisplayName})
	}
	fmt.Fprintln(out, renderTable([]string{"Model", "Name"}, rows, nil))
	return nil
}
