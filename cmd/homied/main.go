// homied publishes configured devices on an MQTT broker following the Homie
// convention.
//
// Each device from the configuration file announces its attributes, nodes
// and properties under <topic>/<device id>/, answers set commands and keeps
// $state current, including the broker-side "lost" will.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/homie-device/internal/api"
	"github.com/nerrad567/homie-device/internal/audit"
	"github.com/nerrad567/homie-device/internal/device"
	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/homie/node"
	"github.com/nerrad567/homie-device/internal/infrastructure/config"
	"github.com/nerrad567/homie-device/internal/infrastructure/database"
	"github.com/nerrad567/homie-device/internal/infrastructure/influxdb"
	"github.com/nerrad567/homie-device/internal/infrastructure/logging"
	"github.com/nerrad567/homie-device/internal/journal"
	"github.com/nerrad567/homie-device/migrations"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts every configured device and blocks until ctx is cancelled.
//
// Shutdown order: API server, stats scheduler, devices ($state
// disconnected), MQTT transports, then the InfluxDB and database clients.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting homied", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "devices", len(cfg.Devices))

	checks := make(map[string]api.HealthChecker)
	opts := device.BuildOptions{
		Logger:    log.Component("homie"),
		Broadcast: broadcastLogger(log),
	}
	var (
		auditLog audit.Repository
		retained api.RetainedLister
	)

	if cfg.Database.Enabled {
		db, err := openJournal(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		j := journal.NewSQLiteJournal(db)
		opts.Journal = j
		retained = j
		auditLog = audit.NewSQLiteRepository(db)
		checks["database"] = db
		log.Info("retained-topic journal ready", "path", cfg.Database.Path)
	}

	if cfg.InfluxDB.Enabled {
		influx, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		opts.Recorder = influx
		checks["influxdb"] = influx
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	opts.OnSet = acceptSet(log, auditLog)

	pool := newTransportPool(cfg, log)
	defer pool.Close()

	registry := device.NewRegistry()
	registry.SetLogger(log.Component("registry"))
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			log.Error("error closing devices", "error", closeErr)
		}
	}()

	rt := homie.NewRuntime()
	rt.SetLogger(log.Component("scheduler"))
	defer rt.Close()

	for i, dc := range cfg.Devices {
		transport, err := pool.For(i, dc)
		if err != nil {
			return err
		}
		dev, err := device.Build(rt, transport, cfg.Homie, dc, opts)
		if err != nil {
			return fmt.Errorf("building device %d: %w", i, err)
		}
		if err := registry.Register(dev); err != nil {
			return err
		}
	}
	for name, client := range pool.Clients() {
		checks["mqtt:"+name] = client
	}

	for _, dev := range registry.List() {
		if err := dev.Start(); err != nil {
			return fmt.Errorf("starting device %s: %w", dev.ID(), err)
		}
		log.Info("device started", "device", dev.ID(), "topic", dev.Topic())
	}

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Registry: registry,
			Checks:   checks,
			Audit:    auditLog,
			Retained: retained,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

func getConfigPath() string {
	if path := os.Getenv("HOMIED_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openJournal opens and migrates the journal database.
func openJournal(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: time.Duration(cfg.BusyTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return nil, errors.Join(fmt.Errorf("running migrations: %w", err), db.Close())
	}
	return db, nil
}

func broadcastLogger(log *logging.Logger) homie.BroadcastHandler {
	return func(level, payload string) {
		log.Info("broadcast received", "level", level, "payload", payload)
	}
}

// auditTimeout bounds recording one MQTT set command.
const auditTimeout = 2 * time.Second

// acceptSet accepts every validated set command, logs it and, when auditLog
// is set, records it with source mqtt.
func acceptSet(log *logging.Logger, auditLog audit.Repository) func(string, *node.Property, string) bool {
	return func(deviceID string, p *node.Property, value string) bool {
		log.Info("set command accepted", "device", deviceID, "topic", p.Topic(), "value", value)
		if auditLog == nil {
			return true
		}

		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		err := auditLog.Create(ctx, &audit.AuditLog{
			Action:   audit.ActionSet,
			DeviceID: deviceID,
			EntityID: p.NodeID() + "/" + p.ID(),
			Source:   audit.SourceMQTT,
			Details:  map[string]any{"value": value},
		})
		if err != nil {
			log.Error("recording audit log", "error", err, "device", deviceID)
		}
		return true
	}
}
