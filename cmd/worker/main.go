package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/reelvault/internal/app"
	"github.com/timmy/reelvault/internal/config"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/trigger"
)

func main() {
	envCfg := logger.LoadFromEnv()
	if os.Getenv("SERVICE_NAME") == "" {
		envCfg.ServiceName = "reelvault-worker"
	}
	appLogger := logger.NewFromEnv(envCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	once := flag.Bool("once", false, "Run a single invocation, print its result and exit")
	depth := flag.Int("depth", 0, "Chain depth of the invocation started with -once")
	requeue := flag.Bool("requeue", false, "Requeue failed jobs below the attempt limit before starting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize components")
	}
	defer components.Close()

	if *requeue {
		n, err := components.Jobs.Requeue(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to requeue jobs")
		}
		appLogger.WithField("requeued", n).Info("Failed jobs requeued")
	}

	if *once {
		result, err := components.Worker.Run(ctx, trigger.Invocation{Depth: *depth, Reason: "cli"})
		if err != nil {
			appLogger.WithError(err).Fatal("Worker run failed")
		}
		if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
			appLogger.WithError(err).Fatal("Failed to print result")
		}
		return
	}

	// Scheduled runs execute in this process regardless of the configured
	// trigger; chained runs follow the trigger.
	scheduler := trigger.NewScheduler(trigger.NewLocal(components.Worker.RunInvocation), cfg.Worker.ScheduleInterval).
		WithSweep(components.Jobs.Sweep)
	if cfg.Worker.ScheduleInterval > 0 {
		scheduler.Start(ctx)
	}

	var listener *trigger.Listener
	if components.Redis != nil {
		listener = trigger.NewListener(components.Redis, cfg.Redis.Queue, components.Worker.RunInvocation)
		listener.Start(ctx)
	}

	if listener == nil && cfg.Worker.ScheduleInterval <= 0 {
		appLogger.Warn("Neither a redis trigger nor a schedule interval is configured; the worker will stay idle")
	}

	appLogger.WithFields(logger.Fields{
		"trigger":  cfg.Worker.Trigger,
		"interval": cfg.Worker.ScheduleInterval.String(),
	}).Info("Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Received shutdown signal, stopping...")
	cancel()
	scheduler.Stop()
	if listener != nil {
		listener.Stop()
	}
	appLogger.Info("Worker exited")
}
