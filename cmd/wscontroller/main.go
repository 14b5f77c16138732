// wscontroller relays JSON messages from HTTP callers to devices holding a
// WebSocket connection, keyed by a three-digit device number.
//
// Configuration is read from the YAML file named by WSCONTROLLER_CONFIG (if
// set) and overridden by environment variables; see internal/infrastructure/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrweisheng/wscontroller/internal/api"
	"github.com/mrweisheng/wscontroller/internal/hub"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/database"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/influxdb"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/logging"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/mqtt"
	"github.com/mrweisheng/wscontroller/internal/journal"
	"github.com/mrweisheng/wscontroller/internal/liveness"
	"github.com/mrweisheng/wscontroller/internal/presence"
	"github.com/mrweisheng/wscontroller/internal/registry"
	"github.com/mrweisheng/wscontroller/internal/relay"
	"github.com/mrweisheng/wscontroller/internal/telemetry"
	"github.com/mrweisheng/wscontroller/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnv names the optional configuration file.
const configEnv = "WSCONTROLLER_CONFIG"

// connectionDrainTimeout bounds the wait for device pumps after shutdown.
const connectionDrainTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting wscontroller",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := os.Getenv(configEnv)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	reg := registry.New()
	reg.SetLogger(log.With("component", "registry"))

	fanout := presence.NewFanout(presence.DefaultBuffer)
	fanout.SetLogger(log.With("component", "presence"))
	reg.SetObserver(fanout)

	dispatcher := relay.NewDispatcher(reg)
	dispatcher.SetLogger(log.With("component", "relay"))

	checks := make(map[string]api.HealthChecker)

	// Connection journal (optional)
	var journalRepo journal.Repository
	if cfg.Journal.Enabled {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		repo := journal.NewSQLiteRepository(db.DB)
		journalRepo = repo
		fanout.AddSink("journal", presence.NewJournalSink(repo))
		checks["database"] = db
		log.Info("connection journal enabled", "path", db.Path())
	} else {
		log.Info("connection journal disabled")
	}

	// MQTT presence and command ingress (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))

		qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2
		topics := mqttClient.Topics()
		fanout.AddSink("mqtt", presence.NewMQTTSink(mqttClient, topics, qos))

		commands := relay.NewCommandHandler(dispatcher, topics, mqttClient, qos)
		commands.SetLogger(log.With("component", "mqtt_commands"))
		if err := mqttClient.Subscribe(topics.AllCommands(), qos, commands.Handle); err != nil {
			return fmt.Errorf("subscribing to commands: %w", err)
		}
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"commands", topics.AllCommands(),
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	var reporter liveness.Reporter
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		writer := telemetry.New(influxClient)
		dispatcher.SetRecorder(writer)
		fanout.AddSink("influxdb", writer)
		reporter = writer
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	h := hub.New(cfg.WebSocket, reg)
	h.SetLogger(log.With("component", "hub"))

	server, err := api.New(api.Deps{
		Config:     cfg.Server,
		Logger:     log.With("component", "api"),
		Registry:   reg,
		Hub:        h,
		Dispatcher: dispatcher,
		Journal:    journalRepo,
		Checks:     checks,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	// The fanout outlives the monitors so removals from CloseAll still
	// reach the sinks.
	fanoutCtx, stopFanout := context.WithCancel(context.Background())
	defer stopFanout()
	fanoutDone := make(chan struct{})
	go func() {
		defer close(fanoutDone)
		_ = fanout.Run(fanoutCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, sweep := range cfg.Liveness.Sweeps {
		mon := liveness.New(liveness.ParamsFromConfig(sweep), reg)
		mon.SetLogger(log.With("component", "liveness", "sweep", sweep.Name))
		if reporter != nil {
			mon.SetReporter(reporter)
		}
		g.Go(func() error { return mon.Run(gctx) })
	}

	log.Info("initialisation complete",
		"address", server.Addr(),
		"sweeps", len(cfg.Liveness.Sweeps),
		"sinks", fanout.Sinks(),
	)

	<-gctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := server.Close(); err != nil {
		log.Error("error closing API server", "error", err)
	}

	closed := reg.CloseAll(registry.ReasonClosed)
	drainCtx, cancel := context.WithTimeout(context.Background(), connectionDrainTimeout)
	defer cancel()
	if err := h.Wait(drainCtx); err != nil {
		log.Warn("device connections did not drain", "error", err)
	}
	log.Info("device connections closed", "count", closed)

	groupErr := g.Wait()
	stopFanout()
	<-fanoutDone
	if dropped := fanout.Dropped(); dropped > 0 {
		log.Warn("presence events dropped", "count", dropped)
	}
	if groupErr != nil {
		return groupErr
	}

	log.Info("wscontroller stopped")
	return nil
}
