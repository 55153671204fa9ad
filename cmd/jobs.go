package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/video-stream/subbot/internal/job"
)

func newJobsCommand(o *options) *cobra.Command {
	var userID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List translation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			database, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			jobs, err := job.NewJobQueue(database.DB()).ListJobs(userID)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			if limit > 0 && len(jobs) > limit {
				jobs = jobs[:limit]
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobs(jobs, time.Now()))
			return nil
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "only show this user's jobs")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows (0 for all)")
	return cmd
}

func renderJobs(jobs []*job.Job, now time.Time) string {
	headers := []string{"ID", "User", "File", "Status", "Progress", "Created", "Detail"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			shortID(j.ID),
			fmt.Sprint(j.UserID),
			j.FileName,
			string(j.Status),
			fmt.Sprintf("%.0f%%", j.Progress*100),
			humanize.RelTime(j.CreatedAt, now, "ago", "from now"),
			jobDetail(j),
		})
	}
	return renderTable(headers, rows, aligns)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func jobDetail(j *job.Job) string {
	if j.Error != "" {
		return j.Error
	}
	if len(j.Result) == 0 {
		return ""
	}
	var r job.TranslateResult
	if err := json.Unmarshal(j.Result, &r); err != nil {
		return ""
	}
	if r.Fallback > 0 {
		return fmt.Sprintf("%s (%d kept original)", r.OutputName, r.Fallback)
	}
	return r.OutputName
}
