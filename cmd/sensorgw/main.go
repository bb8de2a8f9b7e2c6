// sensorgw is the sensor ingestion gateway.
//
// It receives raw device readings over MQTT, resolves each device's
// attribute metadata from SQLite (converters, calibration expressions and
// validators, cached per device), applies it, and forwards the processed
// values to the database, InfluxDB and MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/nerrad567/gray-logic-sensorgw/migrations"

	"github.com/nerrad567/gray-logic-sensorgw/internal/api"
	"github.com/nerrad567/gray-logic-sensorgw/internal/audit"
	"github.com/nerrad567/gray-logic-sensorgw/internal/auth"
	"github.com/nerrad567/gray-logic-sensorgw/internal/gateway"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
	"github.com/nerrad567/gray-logic-sensorgw/internal/storage"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// Set at build time via -ldflags "-X main.version=...".
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

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting sensorgw", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := database.Open(database.Config{
		Path:         cfg.Database.Path,
		WALMode:      cfg.Database.WALMode,
		BusyTimeout:  cfg.Database.BusyTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConn,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	conn, err := store.New(db.DB, store.Options{
		BindMode: cfg.Metadata.BindMode,
		Timeout:  cfg.Metadata.QueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating store connector: %w", err)
	}

	if _, err := auth.SeedToken(ctx, conn, log.Logger); err != nil {
		return fmt.Errorf("seeding token: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metadataSvc, err := buildMetadata(cfg.Metadata, conn, reg, log)
	if err != nil {
		return err
	}

	persister, err := buildPersister(cfg, conn)
	if err != nil {
		return err
	}

	authenticator := auth.New(conn, cfg.Metadata.Queries.Auth)
	auditRepo := audit.NewSQLiteRepository(db.DB)

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
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	checks := map[string]api.HealthChecker{"database": db, "mqtt": mqttClient}

	var timeSeries gateway.TimeSeriesWriter
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
		influxClient.SetOnError(func(err error) { log.Error("InfluxDB write error", "error", err) })
		timeSeries = influxClient
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	gwMetrics, err := gateway.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("registering gateway metrics: %w", err)
	}
	gw, err := gateway.New(gateway.Options{
		MQTT:        mqttClient,
		Metadata:    metadataSvc,
		Auth:        authenticator,
		Persister:   persister,
		TimeSeries:  timeSeries,
		Audit:       auditRepo,
		Metrics:     gwMetrics,
		Logger:      log.With("component", "gateway"),
		RequireAuth: cfg.Gateway.RequireAuth,
		Concurrency: cfg.Gateway.Concurrency,
		QueueSize:   cfg.Gateway.QueueSize,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	if err := gw.Start(); err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	defer gw.Stop()

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.With("component", "api"),
			Metadata: metadataSvc,
			Auth:     authenticator,
			Audit:    auditRepo,
			Checks:   checks,
			Gatherer: reg,
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

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "gateway_id", cfg.Gateway.ID)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

func buildMetadata(cfg config.MetadataConfig, conn store.Connector, reg prometheus.Registerer, log *logging.Logger) (*metadata.Service, error) {
	queries, err := metadata.DefaultQueries(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("metadata queries: %w", err)
	}
	queries = queries.WithOverrides(metadata.Queries{
		Attributes:  cfg.Queries.Attributes,
		Converters:  cfg.Queries.Converters,
		Calibrators: cfg.Queries.Calibrators,
		Validators:  cfg.Queries.Validators,
	})

	m, err := metadata.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metadata metrics: %w", err)
	}
	metaLog := log.With("component", "metadata")

	resolver := metadata.NewResolver(conn, metadata.ResolverConfig{Queries: queries, MaxFanout: cfg.MaxFanout})
	resolver.SetLogger(metaLog)
	resolver.SetMetrics(m)

	cache := metadata.NewCache()
	cache.SetMetrics(m)

	svc := metadata.NewService(resolver, cache, metadata.Config{TTL: cfg.CacheTTL, SingleFlight: cfg.SingleFlight})
	svc.SetLogger(metaLog)
	svc.SetMetrics(m)
	return svc, nil
}

func buildPersister(cfg *config.Config, conn store.Connector) (storage.Persister, error) {
	if !cfg.Storage.Enabled {
		return storage.Unsupported{}, nil
	}
	up, err := storage.NewUpserter(conn, storage.UpserterConfig{
		Table:      cfg.Storage.Table,
		PrimaryKey: cfg.Storage.PrimaryKey,
		Template:   cfg.Metadata.Queries.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage upserter: %w", err)
	}
	return up, nil
}

func getConfigPath() string {
	if path := os.Getenv("SENSORGW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
