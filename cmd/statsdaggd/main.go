// Command statsdaggd runs the metrics aggregation daemon: a UDP
// StatsD listener, a single-owner aggregate processor, a periodic
// flush to one or more downstream backends, and an admin HTTP API.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grafana/statsdaggd/internal/admin"
	"github.com/grafana/statsdaggd/internal/aggregate"
	"github.com/grafana/statsdaggd/internal/config"
	"github.com/grafana/statsdaggd/internal/logging"
	"github.com/grafana/statsdaggd/internal/processor"
	"github.com/grafana/statsdaggd/internal/server"
	"github.com/grafana/statsdaggd/internal/telemetry"
	"github.com/grafana/statsdaggd/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	listenOverride := flag.String("listen", "", "override listen_udp from config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "statsdaggd:", err)
		os.Exit(1)
	}
	if *listenOverride != "" {
		cfg.ListenUDP = *listenOverride
	}

	log := logging.New(cfg.LogLevel)
	tm := telemetry.New()

	backend, err := buildBackend(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build writer backend")
	}

	wallClock := func() int64 { return time.Now().Unix() }
	proc := processor.New(wallClock, processor.WithLogger(log), processor.WithTelemetry(tm))
	act := processor.NewActor(proc, 1024)
	go act.Run()
	defer act.Stop()

	udp := server.NewUDPListener(cfg.ListenUDP, log, tm)
	go func() {
		if err := udp.Serve(act); err != nil {
			log.WithError(err).Fatal("udp listener exited")
		}
	}()

	adminHandler := admin.New(log, act, tm)
	go serveAdmin(cfg.AdminListen, adminHandler, log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.FlushIntervalDuration())
	defer ticker.Stop()

	log.WithField("listen_udp", cfg.ListenUDP).WithField("admin", cfg.AdminListen).Info("statsdaggd started")

	for {
		select {
		case <-ticker.C:
			runFlush(act, backend, cfg, log, tm)
		case <-stop:
			log.Info("shutting down")
			runFlush(act, backend, cfg, log, tm)
			backend.Close()
			return
		}
	}
}

// runFlush drives one flush cycle on the actor and hands the
// resulting batch to backend as a single Write call.
func runFlush(act *processor.Actor, backend writer.Writer, cfg config.Config, log *logrus.Logger, tm *telemetry.Telemetry) {
	var batch []aggregate.Emission
	act.Flush(cfg.FlushInterval, cfg.Percentile, func(e aggregate.Emission) {
		batch = append(batch, e)
	})
	if len(batch) == 0 {
		return
	}
	if err := backend.Write(batch); err != nil {
		tm.WriterFailures.Inc(1)
		log.WithError(err).Warn("writer backend failed")
	}
}

// buildBackend wires every configured writer.Writer into a single
// Fanout, wrapping each one in a SpoolWriter so a down backend doesn't
// block the others (spec.md §5).
func buildBackend(cfg config.Config, log *logrus.Logger) (writer.Writer, error) {
	backends := make([]writer.Writer, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		var w writer.Writer
		var err error
		switch b.Kind {
		case "graphite":
			w = buildGraphite(b.Addresses, log)
		case "kafka":
			w, err = writer.NewKafkaWriter(b.Brokers, b.Topic)
		case "amqp":
			w, err = writer.NewAMQPWriter(b.AMQPURL, b.Exchange, b.RoutingKey)
		case "cloudwatch":
			w, err = writer.NewCloudWatchWriter(b.Region, b.Namespace)
		default:
			err = fmt.Errorf("unknown backend kind %q", b.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", b.Kind, err)
		}
		backends = append(backends, writer.NewSpoolWriter(w, cfg.SpoolCapacity, log))
	}
	return writer.NewFanout(log, backends...), nil
}

// buildGraphite returns a single GraphiteWriter for one address, or a
// ShardedGraphite routing across all of them when more than one
// address is configured.
func buildGraphite(addresses []string, log *logrus.Logger) writer.Writer {
	if len(addresses) <= 1 {
		addr := "localhost:2003"
		if len(addresses) == 1 {
			addr = addresses[0]
		}
		return writer.NewGraphiteWriter(addr, log)
	}
	shards := make([]*writer.GraphiteWriter, len(addresses))
	for i, addr := range addresses {
		shards[i] = writer.NewGraphiteWriter(addr, log)
	}
	return writer.NewShardedGraphite(shards)
}

func serveAdmin(addr string, handler http.Handler, log *logrus.Logger) {
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.WithError(err).Fatal("admin server exited")
	}
}
