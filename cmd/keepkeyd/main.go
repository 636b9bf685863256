// Command keepkeyd runs the KeepKey device gateway as a standalone process,
// discovering attached devices and logging every connect/disconnect and
// interactive prompt it sees. It is a minimal driver for the Gateway API,
// not a UI: PIN/passphrase prompts are logged, not answered, so an
// interactive session started through this binary alone will sit in
// AwaitingPin/AwaitingPassphrase until cancelled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	keepkey "github.com/keepkey/device-gateway"
	"github.com/keepkey/device-gateway/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file (optional, overlays defaults)")
		verbose    = flag.Bool("v", false, "verbose (debug-level) logging")
	)
	flag.Parse()

	cfg := keepkey.DefaultConfig()
	if *configPath != "" {
		loaded, err := keepkey.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "keepkeyd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	logConfig := logging.DefaultConfig()
	switch cfg.LogLevel {
	case "debug":
		logConfig.Level = logging.LevelDebug
	case "warn":
		logConfig.Level = logging.LevelWarn
	case "error":
		logConfig.Level = logging.LevelError
	}
	logConfig.Format = cfg.LogFormat
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := keepkey.NewMetrics()
	gw, err := keepkey.Open(cfg, &keepkey.Options{
		Context:  ctx,
		Logger:   logger,
		Observer: keepkey.NewMetricsObserver(metrics),
	})
	if err != nil {
		logger.Error("failed to open gateway", "error", err)
		os.Exit(1)
	}

	events, unsubscribe := gw.Subscribe(64)
	defer unsubscribe()
	go logEvents(logger, events)

	logger.Info("keepkeyd started, watching for devices")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	closeDone := make(chan struct{})
	go func() {
		gw.Close()
		close(closeDone)
	}()

	select {
	case <-closeDone:
		logger.Info("gateway stopped cleanly")
	case <-time.After(5 * time.Second):
		logger.Warn("gateway shutdown timed out, exiting anyway")
	}

	snap := metrics.Snapshot()
	logger.Info("final metrics", "total_ops", snap.TotalOps, "errors", snap.RequestErrors,
		"pin_prompts", snap.PinPrompts, "button_prompts", snap.ButtonPrompts)
}

// logEvents prints every bus Event until the channel closes on Close. This
// is the whole of this binary's UI: a real frontend would instead surface
// AwaitingPin/AwaitingPassphrase to a human and call PinSubmit/
// PassphraseSubmit via the Gateway's command API.
func logEvents(logger *logging.Logger, events <-chan keepkey.Event) {
	for evt := range events {
		switch evt.Kind {
		case keepkey.EventDeviceConnected:
			logger.Info("device connected", "unique_id", evt.UniqueID)
		case keepkey.EventDeviceDisconnected:
			logger.Info("device disconnected", "unique_id", evt.UniqueID)
		case keepkey.EventAwaitingPin:
			logger.Info("device awaiting pin", "unique_id", evt.UniqueID, "request_id", evt.RequestID, "kind", evt.PinKind)
		case keepkey.EventAwaitingButton:
			logger.Info("device awaiting button press", "unique_id", evt.UniqueID, "request_id", evt.RequestID)
		case keepkey.EventAwaitingPassphrase:
			logger.Info("device awaiting passphrase", "unique_id", evt.UniqueID, "request_id", evt.RequestID)
		case keepkey.EventNeedsReconnect:
			logger.Info("device needs reconnect", "unique_id", evt.UniqueID, "reason", evt.Reason)
		case keepkey.EventFeaturesUpdated:
			logger.Info("device features updated", "unique_id", evt.UniqueID)
		case keepkey.EventError:
			logger.Warn("device error", "unique_id", evt.UniqueID, "code", evt.Code, "message", evt.Message)
		case keepkey.EventInvalidState:
			logger.Warn("device entered invalid state", "unique_id", evt.UniqueID, "details", evt.Details)
		}
	}
}
