package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/parakeet-ai/parakeet-go/parakeet"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/config"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/logging"
)

var (
	baseURL string
	apiKey  string
	homeDir string

	cfg *config.Config
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parakeet",
		Short:         "CLI for the Parakeet assistants service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.InitFromEnv()

			// The config file and run journal both resolve their paths
			// through the cache dir env var.
			if homeDir != "" {
				if err := os.Setenv(constants.EnvCacheDir, homeDir); err != nil {
					return err
				}
			}

			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if apiKey != "" {
				loaded.APIKey = apiKey
			}
			if baseURL != "" {
				loaded.SetBaseURL(baseURL)
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "service base URL (default from config or https://api.parakeet.ai)")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (default from config or PARAKEET_API_KEY)")
	root.PersistentFlags().StringVar(&homeDir, "home", "", "local cache directory (default ~/.parakeet)")

	root.AddCommand(
		configureCmd(),
		statusCmd(),
		runCmd(),
		watchCmd(),
		listCmd(),
		historyCmd(),
		serveCmd(),
	)
	return root
}

func newClient() (*parakeet.Client, error) {
	return parakeet.NewClient(parakeet.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Logger:  logging.L(),
	})
}
