package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/config"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
)

func configureCmd() *cobra.Command {
	var assistant string
	var clear bool

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Save API key, base URL and defaults to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				if err := config.Clear(); err != nil {
					return err
				}
				fmt.Println("Configuration cleared.")
				return nil
			}

			if apiKey != "" {
				cfg.APIKey = apiKey
			}
			if baseURL != "" {
				cfg.SetBaseURL(baseURL)
			}
			if assistant != "" {
				cfg.DefaultAssistant = assistant
			}

			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Printf("Configuration written to %s\n", constants.GetConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&assistant, "assistant", "", "default assistant ID for run commands")
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the config file")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			for key, value := range cfg.Status() {
				fmt.Printf("%-14s %v\n", key+":", value)
			}
			return nil
		},
	}
}
