package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/rovlink/config"
	"github.com/opd-ai/rovlink/telemetry"
	"github.com/opd-ai/rovlink/transport"
	"github.com/opd-ai/rovlink/vehicle"
)

func vehicleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicle",
		Short: "Run the vehicle end of the link",
		Long: `Run the vehicle end of the link.

The vehicle reports uptime, load, CPU, wireless quality and temperature
from procfs and sysfs, answers video and light commands with its status,
drives its motors from speed/turn commands and stops them while the link
is lost.

Examples:
  rovlink vehicle --remote 192.168.1.10
  rovlink vehicle -c /etc/rovlink.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags, config.RoleVehicle)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runVehicle(ctx, cfg)
		},
	}
}

// runVehicle reports telemetry and serves commands until ctx is cancelled.
func runVehicle(ctx context.Context, cfg *config.Config) error {
	log, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}

	sampler, err := telemetry.NewSampler(cfg.Vehicle.ProcRoot, cfg.Vehicle.SysRoot)
	if err != nil {
		return err
	}
	v := vehicle.New(
		sampler,
		cfg.StatsInterval(),
		vehicle.WithLogger(log.WithField("component", "vehicle")),
	)
	ep := newEndpoint(cfg, transport.Events{
		OnConnectionStatus: v.OnConnectionStatus,
	}, log)
	if err := v.Register(ep.tx); err != nil {
		return err
	}
	if err := ep.open(); err != nil {
		return err
	}

	log.WithField("remote", cfg.RemoteAddr()).Info("Vehicle link open")

	g, ctx := errgroup.WithContext(ctx)
	ep.run(ctx, g)
	g.Go(func() error {
		return v.Run(ctx)
	})
	return g.Wait()
}
