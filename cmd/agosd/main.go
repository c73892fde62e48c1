package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/adapter/http"
	kafkaadapter "github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/adapter/kafka"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/broadcast"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/config"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/controller"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/modem"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/observability"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/remote"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/sensor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	sampler, err := newSampler(cfg)
	if err != nil {
		logger.Error("failed to set up sensors", "error", err)
		os.Exit(1)
	}

	port, err := modem.Open(cfg.SerialDevice, cfg.SerialBaud)
	if err != nil {
		logger.Error("failed to open modem serial port", "error", err)
		os.Exit(1)
	}
	driver := modem.NewDriver(port, modem.Timings{
		CommandTimeout:      cfg.ModemCommandTimeout,
		SIMReadyTimeout:     cfg.ModemSIMReadyTimeout,
		RegistrationTimeout: cfg.ModemRegistrationTimeout,
		RegistrationPoll:    cfg.ModemRegistrationPoll,
		PromptTimeout:       cfg.ModemPromptTimeout,
		SendSettle:          cfg.ModemSendSettle,
	}, logger, clock)

	gateway := remote.NewClient(cfg.ServerBaseURL, cfg.StationID, cfg.ServerTimeout, logger)
	directory := broadcast.NewDirectory(cfg.MaxRecipients, broadcast.Recipient(cfg.FallbackRecipient))
	sequencer := broadcast.NewSequencer(driver, cfg.BroadcastSpacing, logger, metrics, clock)
	escalator := domain.NewEscalator(cfg.AlertCooldown, cfg.StationID, clock)

	// Optional fleet event stream (feature-flagged via EVENTS_ENABLED).
	var events controller.EventSink
	var eventWriter *kafkaadapter.Writer
	if cfg.EventsEnabled {
		eventWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.StationID, logger)
		events = eventWriter
		logger.Info("fleet event stream enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("fleet event stream disabled")
	}

	ctrl := controller.New(
		sampler, escalator, sequencer, directory, driver, gateway, events,
		controller.Intervals{
			Sample:           cfg.SampleInterval,
			Telemetry:        cfg.TelemetryInterval,
			CommandPoll:      cfg.CommandPollInterval,
			RecipientRefresh: cfg.RecipientRefreshInterval,
		},
		logger, metrics, clock,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, ctrl, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP surface.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the control loop.
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			logger.Error("control loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := port.Close(); err != nil {
		logger.Error("serial port close error", "error", err)
	}
	if eventWriter != nil {
		if err := eventWriter.Close(); err != nil {
			logger.Error("event writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func newSampler(cfg *config.Config) (sensor.Sampler, error) {
	if cfg.SensorSource == "replay" {
		return sensor.ParseReplayScript(cfg.SensorReplayScript)
	}
	return sensor.NewGPIOSampler(cfg.SensorGPIOPaths, cfg.SensorActiveLow)
}
