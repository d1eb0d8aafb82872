// Package metrics exports link telemetry to Prometheus.
//
// A Collector turns transport events into metrics. Collector.Instrument wraps
// an existing transport.Events so the application keeps its own callbacks:
//
//	srv := metrics.NewServer("127.0.0.1:9108", "/metrics")
//	col := metrics.NewCollector(srv.Registry())
//	tx := transport.New(transport.WithEvents(col.Instrument(events)))
//	go srv.Run(ctx)
package metrics
