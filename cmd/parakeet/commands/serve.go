package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/devserver"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/logging"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/netutil"
)

func serveCmd() *cobra.Command {
	var host string
	var port int
	var stepEvery time.Duration
	var serveKey string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local in-memory Parakeet service for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				found, err := netutil.FindAvailablePort(host, constants.DefaultPortStart)
				if err != nil {
					return err
				}
				port = found
			}

			server := devserver.New(devserver.Options{
				Host:      host,
				Port:      port,
				APIKey:    serveKey,
				StepEvery: stepEvery,
				Logger:    logging.L(),
			})

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", constants.DefaultLocalHost, "bind host")
	cmd.Flags().IntVar(&port, "port", 0, "bind port (0 picks a free one)")
	cmd.Flags().DurationVar(&stepEvery, "step-every", 500*time.Millisecond, "run lifecycle phase duration")
	cmd.Flags().StringVar(&serveKey, "require-key", "", "require this bearer token on every request")
	return cmd
}
