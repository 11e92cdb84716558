package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/journal"
)

func historyCmd() *cobra.Command {
	var limit int
	var threadID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show locally journaled runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := journal.NewService("")
			if err != nil {
				return err
			}
			defer svc.Close()

			if threadID != "" {
				stats, err := svc.StatsForThread(threadID)
				if err != nil {
					return err
				}
				fmt.Printf("thread %s: %d runs (%d completed, %d failed)\n",
					stats.ThreadID, stats.RunCount, stats.CompletedCount, stats.FailedCount)
				if stats.LastRunAt != nil {
					fmt.Printf("last run: %s\n", stats.LastRunAt.Format(time.RFC3339))
				}
				return nil
			}

			records, err := svc.ListRecent(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No journaled runs.")
				return nil
			}
			for _, rec := range records {
				line := fmt.Sprintf("%s  %-16s thread=%s", rec.RunID, rec.Status, rec.ThreadID)
				if rec.DurationMs != nil {
					line += fmt.Sprintf("  %dms", *rec.DurationMs)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max entries to show")
	cmd.Flags().StringVar(&threadID, "thread", "", "show aggregate stats for one thread")
	return cmd
}
