package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parakeet-ai/parakeet-go/parakeet"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
	}
	cmd.AddCommand(listRunsCmd(), listStepsCmd())
	return cmd
}

func listRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs <thread-id>",
		Short: "List all runs on a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			paginator := parakeet.NewRunsPaginator(client, args[0], parakeet.ListParams{Limit: limit})
			for paginator.HasMorePages() {
				page, err := paginator.NextPage(cmd.Context())
				if err != nil {
					return err
				}
				for _, run := range page.Items {
					fmt.Printf("%s  %-16s assistant=%s\n", run.ID, run.Status, run.AssistantID)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "page-size", 20, "page size")
	return cmd
}

func listStepsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "steps <thread-id> <run-id>",
		Short: "List all steps of a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			paginator := parakeet.NewRunStepsPaginator(client, args[0], args[1], parakeet.ListParams{Limit: limit})
			steps, err := paginator.All(cmd.Context())
			if err != nil {
				return err
			}

			printer := stepPrinter{}
			for _, step := range steps {
				fmt.Printf("%s  %-12s %-16s ", step.ID, step.Type, step.Status)
				if err := parakeet.VisitRunStepDetails(step.Details, &printer); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "page-size", 20, "page size")
	return cmd
}

type stepPrinter struct{}

func (stepPrinter) VisitMessageCreation(d *parakeet.MessageCreationDetails) error {
	fmt.Printf("message=%s\n", d.MessageID)
	return nil
}

func (stepPrinter) VisitToolCalls(d *parakeet.ToolCallsDetails) error {
	for _, call := range d.ToolCalls {
		if call.Function != nil {
			fmt.Printf("call %s(%s) ", call.Function.Name, call.Function.Arguments)
		} else {
			fmt.Printf("call type=%s ", call.Type)
		}
	}
	fmt.Println()
	return nil
}

func (stepPrinter) VisitUnknown(d *parakeet.UnknownDetails) error {
	fmt.Printf("unknown details type=%q\n", d.Tag)
	return nil
}
