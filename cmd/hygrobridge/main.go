// hygrobridge publishes temperature, humidity and battery readings from
// Bluetooth LE hygrometers to an MQTT broker.
//
// Each configured sensor gets its own session on the radio. Readings are
// published retained under {mqttTopic}/{suffix} as {"timestamp":ms,"value":v},
// at most once per topic every ten seconds.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-hygrobridge/migrations"

	"github.com/nerrad567/gray-logic-hygrobridge/internal/bridges/hygro"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/device"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/scanner"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/scanner/ble"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "config.json"

// exit terminates the process. Replaced in tests.
var exit = os.Exit

// radioStarter is the part of the BLE scanner run needs to start scanning.
type radioStarter interface {
	scanner.Scanner
	Start(ctx context.Context) error
}

// newRadio creates the radio scanner. Replaced in tests.
var newRadio = func(log *logging.Logger) radioStarter {
	s := ble.New(scanner.NewHub(scanner.DefaultSessionBuffer))
	s.SetLogger(log.With("component", "ble"))
	return s
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting hygrobridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"devices", len(cfg.Devices),
		"level", cfg.Logging.Level,
	)

	// Device status store (optional)
	var status hygro.StatusRecorder
	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg.Database)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		status = device.NewSQLiteStatusRepository(db.DB)
		log.Info("device status store ready", "path", db.Path())
	}

	// Bridge statistics sink (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	radio := newRadio(log)
	if err := radio.Start(ctx); err != nil {
		return fmt.Errorf("starting radio: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.With("component", "mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("connecting to MQTT broker", "mqtt", cfg.MQTT.String())

	bridge, err := hygro.NewBridge(hygro.BridgeOptions{
		MQTT:    cfg.MQTT,
		Devices: cfg.Devices,
		Broker:  mqttClient,
		Scanner: radio,
		Logger:  log.With("component", "bridge"),
		Status:  status,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	guard := scanner.NewPowerGuard(radio, func() {
		log.Error("bluetooth radio powered off, exiting")
		exit(0)
	})
	guard.SetLogger(log.With("component", "radio"))
	go guard.Watch(ctx) //nolint:errcheck // Power-off exits the process

	if influxClient != nil {
		reporter := hygro.NewStatsReporter(hygro.StatsReporterConfig{
			BridgeID: cfg.Bridge.ID,
			Interval: cfg.InfluxDB.GetStatsInterval(),
			Source:   bridge,
			Sink:     influxClient,
		})
		reporter.Start(ctx)
		// Runs before the InfluxDB client closes.
		defer reporter.Stop()
	}

	log.Info("bridge running", "bridge_id", cfg.Bridge.ID)
	if err := bridge.Run(ctx); err != nil {
		return fmt.Errorf("running bridge: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// openDatabase opens the status database and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// getConfigPath returns the configuration file path.
// Uses HYGROBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HYGROBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
