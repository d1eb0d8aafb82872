package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/rovlink/config"
	"github.com/opd-ai/rovlink/controller"
)

func controllerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "controller",
		Short: "Run the operator end of the link",
		Long: `Run the operator end of the link.

Commands are read from standard input, one per line:

` + controller.Usage() + `
Reports from the vehicle and link telemetry are printed as they arrive.

Examples:
  rovlink controller --remote rover.local
  echo "video on" | rovlink controller -c rovlink.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags, config.RoleController)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runController(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runController runs the console until its input ends, ctx is cancelled or
// a component fails.
func runController(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	log, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}

	console := controller.New(out, log.WithField("component", "controller"))
	ep := newEndpoint(cfg, console.Events(), log)
	if err := console.Register(ep.tx); err != nil {
		return err
	}
	if err := ep.open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	ep.run(ctx, g)
	g.Go(func() error {
		// End of input ends the session.
		defer cancel()
		return console.Run(ctx, in)
	})

	return g.Wait()
}
