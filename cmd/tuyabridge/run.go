package main

import (
	"context"
	"fmt"
	"time"

	_ "github.com/nerrad567/gray-logic-tuya/migrations"

	"github.com/nerrad567/gray-logic-tuya/internal/api"
	"github.com/nerrad567/gray-logic-tuya/internal/bridges/tuya"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
	"github.com/nerrad567/gray-logic-tuya/internal/history"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-tuya/internal/metrics"
)

const hoursPerDay = 24

// run is the daemon, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Configuration file to load
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting Tuya climate bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	devices, err := tuya.LoadDevices(cfg.Tuya.DevicesFile)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	log.Info("devices loaded", "path", cfg.Tuya.DevicesFile, "devices", len(devices))

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
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
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	repo := history.NewSQLiteRepository(db.DB)

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
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	recorderOpts := history.RecorderOptions{Store: repo, Logger: log.Component("history")}
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorderOpts.Metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	collector := metrics.New(version)
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))

	bridge, err := tuya.NewBridge(tuya.BridgeOptions{
		Devices:         devices,
		MQTTClient:      &mqttBridgeAdapter{client: mqttClient},
		GatewayPrefix:   cfg.Tuya.TopicPrefix,
		AckTimeout:      time.Duration(cfg.Tuya.AckTimeout) * time.Second,
		SnapshotTimeout: time.Duration(cfg.Tuya.SnapshotTimeout) * time.Second,
		HealthInterval:  time.Duration(cfg.Tuya.HealthInterval) * time.Second,
		BridgeID:        cfg.Bridge.ID,
		Version:         version,
		Logger:          log.Component("tuya"),
		Metrics:         collector,
		Listeners:       []syncengine.PropertySink{history.NewRecorder(recorderOpts), hub},
		Snapshots:       repo,
		OnHealthTick:    pruneHistory(repo, cfg.Tuya.HistoryRetentionDays, log),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		bridge.Stop()
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()
	mqttClient.SetOnReconnect(func() {
		log.Info("MQTT reconnected, requesting gateway state")
		bridge.Resync()
	})
	log.Info("bridge started", "bridge_id", cfg.Bridge.ID)

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.Component("api"),
			Bridge:  bridge,
			History: repo,
			Metrics: collector.Handler(),
			Hub:     hub,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// pruneHistory returns the health tick hook that enforces history
// retention. A retention of zero days keeps everything.
func pruneHistory(repo *history.SQLiteRepository, days int, log *logging.Logger) func(context.Context) {
	if days <= 0 {
		return nil
	}
	retention := time.Duration(days) * hoursPerDay * time.Hour
	return func(ctx context.Context) {
		deleted, err := repo.PruneHistory(ctx, retention)
		if err != nil {
			log.Warn("history pruning failed", "error", err)
			return
		}
		if deleted > 0 {
			log.Debug("history pruned", "deleted", deleted)
		}
	}
}
