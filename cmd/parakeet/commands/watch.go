package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parakeet-ai/parakeet-go/parakeet"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <thread-id> <run-id>",
		Short: "Stream a run's events until it finishes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			stream, err := client.StreamRun(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			defer stream.Close()

			for {
				ev, more, err := stream.Next(cmd.Context())
				if err != nil {
					return err
				}
				if ev != nil {
					printEvent(ev)
				}
				if !more {
					return nil
				}
			}
		},
	}
	return cmd
}

func printEvent(ev *parakeet.RunEvent) {
	switch ev.Type {
	case parakeet.RunEventStatus:
		fmt.Printf("[%s]\n", ev.Status)
	case parakeet.RunEventDelta:
		fmt.Printf("delta: %s\n", string(ev.Delta))
	case parakeet.RunEventDone:
		fmt.Printf("done: %s\n", ev.Status)
		if ev.Run != nil && ev.Run.LastError != nil {
			fmt.Printf("last error: %s (%s)\n", ev.Run.LastError.Message, ev.Run.LastError.Code)
		}
	}
}
