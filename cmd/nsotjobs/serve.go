package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/nsot-jobs/internal/api"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/database"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/influxdb"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/mqtt"
	"github.com/nerrad567/nsot-jobs/internal/runner"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Host jobs over HTTP (and MQTT when enabled) until interrupted",
		Long: `Start the job host.

The HTTP API listens on api.host:api.port. With mqtt.enabled, results are
published to nsot/jobs/{slug}/result and, with jobs.mqtt_trigger, jobs can be
started by publishing {"data": {...}} to nsot/jobs/{slug}/run. With
influxdb.enabled, every run is recorded in the job_runs measurement.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

// serve runs the job host until ctx is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Root flags
//
// Returns:
//   - error: nil on clean shutdown, or error describing startup failure
func serve(ctx context.Context, opts *rootOptions) error {
	a, err := openApp(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer a.close()

	log := a.log
	log.Info("starting nsotjobs",
		"version", version,
		"commit", commit,
		"build_date", date,
		"site", a.cfg.Site.ID,
	)

	var mqttClient *mqtt.Client
	if a.cfg.MQTT.Enabled {
		mqttClient, err = startMQTT(ctx, a)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	influxClient, err := influxdb.Connect(a.cfg.InfluxDB)
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
		a.runner.SetMetrics(runner.NewInfluxMetrics(influxClient, a.cfg.Site.ID))
		log.Info("InfluxDB connected", "url", a.cfg.InfluxDB.URL, "bucket", a.cfg.InfluxDB.Bucket)
	}

	server, err := api.New(api.Deps{
		Config:   a.cfg.API,
		Logger:   log,
		Registry: a.registry,
		Runner:   a.runner,
		Results:  a.results,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	a.runner.AddPublisher(server.Hub())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, a.db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"jobs", len(a.runner.Jobs()),
		"devices", a.registry.GetDeviceCount(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, waiting for triggered runs")
	a.runner.Wait()
	return nil
}

// healthCheck verifies the connections serve depends on.
// Disabled components are passed as nil and skipped.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection
//   - mqttClient: MQTT client, or nil
//   - influxClient: InfluxDB client, or nil
//
// Returns:
//   - error: First failed check, prefixed with the component name
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// startMQTT connects to the broker and wires result publishing and the
// run trigger according to the jobs config.
func startMQTT(ctx context.Context, a *app) (*mqtt.Client, error) {
	cfg := a.cfg
	log := a.log

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	if cfg.Jobs.PublishEvents {
		a.runner.AddPublisher(runner.NewMQTTPublisher(client, true))
	}

	if cfg.Jobs.MQTTTrigger {
		// #nosec G115 -- qos validated to 0..2 by config.Validate
		if err := a.runner.ListenMQTT(ctx, client, byte(cfg.MQTT.QoS)); err != nil {
			client.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, err
		}
	}

	return client, nil
}
