package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parakeet-ai/parakeet-go/parakeet"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/journal"
)

func runCmd() *cobra.Command {
	var assistant string
	var threadID string
	var timeout time.Duration
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "run [message]",
		Short: "Start a run, poll it to completion and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if assistant == "" {
				assistant = cfg.DefaultAssistant
			}
			if assistant == "" {
				return fmt.Errorf("no assistant ID: pass --assistant or set default_assistant via `parakeet configure`")
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			started := time.Now()
			var run *parakeet.Run
			if threadID == "" {
				run, err = client.CreateThreadAndRunAndPoll(ctx, parakeet.CreateThreadAndRunRequest{
					AssistantID: assistant,
					Thread: &parakeet.CreateThreadRequest{
						Messages: []parakeet.CreateMessageRequest{
							{Role: "user", Content: args[0]},
						},
					},
				}, nil)
			} else {
				if _, msgErr := client.CreateMessage(ctx, threadID, parakeet.CreateMessageRequest{
					Role: "user", Content: args[0],
				}); msgErr != nil {
					return msgErr
				}
				run, err = client.CreateRunAndPoll(ctx, threadID, parakeet.CreateRunRequest{
					AssistantID: assistant,
				}, nil)
			}

			if !noJournal {
				recordOutcome(run, err, assistant, started)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Run %s finished: %s\n", run.ID, run.Status)
			if run.LastError != nil {
				fmt.Printf("Last error: %s (%s)\n", run.LastError.Message, run.LastError.Code)
			}
			if run.Status != parakeet.RunStatusCompleted {
				return nil
			}

			return printLatestAssistantMessage(ctx, client, run)
		},
	}

	cmd.Flags().StringVar(&assistant, "assistant", "", "assistant ID (default from config)")
	cmd.Flags().StringVar(&threadID, "thread", "", "append to an existing thread instead of creating one")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "skip writing the local run journal")
	return cmd
}

func printLatestAssistantMessage(ctx context.Context, client *parakeet.Client, run *parakeet.Run) error {
	page, err := client.ListMessages(ctx, run.ThreadID, parakeet.ListParams{Order: "desc", Limit: 10})
	if err != nil {
		return err
	}
	for _, msg := range page.Items {
		if msg.Role != "assistant" || msg.RunID != run.ID {
			continue
		}
		for _, block := range msg.Content {
			if block.Type == "text" {
				fmt.Println(block.Text)
			}
		}
		return nil
	}
	return nil
}

// recordOutcome journals the run, including runs that never settled.
func recordOutcome(run *parakeet.Run, runErr error, assistant string, started time.Time) {
	svc, err := journal.NewService("")
	if err != nil {
		return
	}
	defer svc.Close()

	rec := &journal.Record{
		AssistantID: assistant,
		Status:      "error",
		StartedAt:   started,
	}
	if run != nil {
		rec.RunID = run.ID
		rec.ThreadID = run.ThreadID
		rec.Status = string(run.Status)
		completed := time.Now()
		rec.CompletedAt = &completed
		duration := completed.Sub(started).Milliseconds()
		rec.DurationMs = &duration
	}
	if runErr != nil {
		msg := runErr.Error()
		rec.ErrorMessage = &msg
	}
	_ = svc.RecordRun(rec)
}
