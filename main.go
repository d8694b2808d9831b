package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bandar/callback"
	"bandar/config"
	"bandar/database"
	"bandar/events"
	"bandar/guard"
	"bandar/jobs"
	"bandar/logger"
	"bandar/routes"
	"bandar/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("bandar", cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	database.Connect(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink callback.FailureSink
	if cfg.RedisAddr != "" {
		rdb, err := events.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, failure alerts disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer rdb.Close()
			sink = events.NewRedisAlerts(rdb, cfg.RedisFailureChannel, log)
		}
	}

	var rounds events.RoundPublisher = events.Nop{}
	if cfg.KafkaBrokers != "" {
		kr := events.NewKafkaRounds(cfg.KafkaBrokers, cfg.KafkaTopicRounds)
		defer kr.Close()
		rounds = kr
	}

	g := guard.New(cfg.PinSentinelBanker, log)
	if cfg.PinSentinelBanker {
		log.Warn("sentinel banker pinned for every round", zap.String("banker", g.Sentinel))
	}

	dispatcher := callback.NewDispatcher(database.DB, callback.Options{
		ConnectTimeout: cfg.CallbackConnectTimeout,
		Timeout:        cfg.CallbackTimeout,
	}, sink, log)

	app := fiber.New()
	routes.Setup(app, routes.Deps{
		Config: cfg,
		DB:     database.DB,
		Settler: services.NewSettler(database.DB, g, dispatcher, services.SettlerOptions{
			DefaultCallbackURL: cfg.CallbackDefaultURL,
			Rounds:             rounds,
		}, log),
		Receiver:   services.NewReceiver(database.DB, g, log),
		Tables:     services.NewTables(database.DB, g, log),
		Dispatcher: dispatcher,
	})

	jobs.Scheduler{
		DB:         database.DB,
		Dispatcher: dispatcher,
		Policy:     callback.PolicyFor(cfg.CallbackRetryMax, cfg.CallbackRetryInterval),
		Every:      cfg.CallbackRetryInterval,
		Retention:  cfg.DeliveryLogRetention,
		Log:        log,
	}.Start(ctx)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	log.Info("server running", zap.String("addr", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("gracefully shutting down")
	if err := app.Shutdown(); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exited cleanly")
}
