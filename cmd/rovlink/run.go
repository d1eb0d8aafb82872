package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/rovlink/config"
	"github.com/opd-ai/rovlink/metrics"
	"github.com/opd-ai/rovlink/transport"
)

// globalFlags are the persistent flags shared by the link commands.
type globalFlags struct {
	configPath string
	remote     string
	port       int
	logLevel   string
}

// resolveConfig loads the config file, or the defaults plus environment when
// none is given, and applies the command line on top.
func resolveConfig(flags *globalFlags, role config.Role) (*config.Config, error) {
	var cfg *config.Config
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return nil, err
		}
	}

	cfg.Role = role
	if flags.remote != "" {
		cfg.Remote.Host = flags.remote
	}
	if flags.port != 0 {
		cfg.Remote.Port = flags.port
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures the standard logrus logger, which every package
// logs through.
func setupLogging(cfg config.LogConfig) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logger := logrus.StandardLogger()
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(logger), nil
}

// endpoint is a transmitter plus its optional metrics server.
type endpoint struct {
	cfg     *config.Config
	tx      *transport.Transmitter
	metrics *metrics.Server
}

func newEndpoint(cfg *config.Config, events transport.Events, log *logrus.Entry) *endpoint {
	ep := &endpoint{cfg: cfg}

	if cfg.Metrics.Enabled {
		ep.metrics = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		col := metrics.NewCollector(ep.metrics.Registry())
		ep.metrics.SetHealthCheck(col.Health)
		events = col.Instrument(events)
	}

	ep.tx = transport.New(
		transport.WithConfig(cfg.ToTransport()),
		transport.WithEvents(events),
		transport.WithLogger(log.WithField("component", "transport")),
	)
	return ep
}

func (e *endpoint) open() error {
	return e.tx.Open(e.cfg.Remote.Host, uint16(e.cfg.Remote.Port))
}

// run adds the metrics server to g and closes the transmitter once ctx ends.
func (e *endpoint) run(ctx context.Context, g *errgroup.Group) {
	if e.metrics != nil {
		g.Go(func() error {
			return e.metrics.Run(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return e.tx.Close()
	})
}

func configExample() string {
	return config.Example
}
