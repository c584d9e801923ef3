package cli

import (
	"context"
	"milterpolicy/internal/api"
	"milterpolicy/internal/backends"
	"milterpolicy/internal/policy"
	"milterpolicy/internal/ports"
	"milterpolicy/internal/types"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	servePort     int
	serveNoReload bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP listen port (default $HTTP_PORT or 8379)")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "Disable hot reload of the policy file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve policy lookups over HTTP",
	Long:  "Loads the policy file, serves read-only lookups over HTTP and reloads the file when it changes.\nA failed reload keeps the previous policy active.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	port := servePort
	if port == 0 {
		var err error
		if port, err = backends.HTTPPortFromEnv(); err != nil {
			return err
		}
	}

	p, err := loadPolicy(nil)
	if err != nil {
		return err
	}
	holder := policy.NewHolder(p)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var publisher ports.Publisher
	arn := backends.ReloadTopicFromEnv()
	if arn != "" {
		if publisher, err = backends.PublisherFromEnv(ctx); err != nil {
			return err
		}
	}

	reloader := policy.NewReloader(holder, policyFile, publisher, arn)
	reloader.Announce(ctx, types.ReloadStatusLoaded, p)
	watching := make(chan struct{})
	if serveNoReload {
		close(watching)
	} else {
		go func() {
			defer close(watching)
			if err := reloader.Run(ctx); err != nil {
				log.WithError(err).Warn("hot-reload disabled")
			}
		}()
	}

	stop, done := api.RunServerInterruptible(port, holder)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
		close(stop)
		err = <-done
	case err = <-done:
		cancel()
	}
	<-watching
	holder.Get().Release()
	return err
}
