package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/config"
	"github.com/Niche-Business/voucher-platform/internal/db"
	"github.com/Niche-Business/voucher-platform/internal/http/api"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"github.com/Niche-Business/voucher-platform/internal/voucher"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, errLoad := config.Load(config.ResolveConfigPath(*configPath))
	if errLoad != nil {
		log.WithError(errLoad).Fatal("load config")
	}
	setupLogging(cfg)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		log.WithError(errOpen).Fatal("open database")
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		log.WithError(errMigrate).Fatal("migrate database")
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Redis.Addr != "" {
		redisNotifier := notify.NewRedisNotifier(cfg.Redis.Addr, cfg.Redis.Channel)
		defer func() { _ = redisNotifier.Close() }()
		notifier = redisNotifier
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := voucher.NewSweeper(conn, notifier, cfg.SweepInterval())
	sweeper.Start(ctx)

	router := api.NewRouter(api.Deps{
		DB:       conn,
		Ledger:   wallet.NewLedger(conn),
		Notifier: notifier,
		Config:   cfg,
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.WithError(errServe).Fatal("serve")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Warn("shutdown")
	}
}

// setupLogging configures logrus level and optional rotated file output.
func setupLogging(cfg *config.Config) {
	level, errParse := log.ParseLevel(cfg.Log.Level)
	if errParse != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Log.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}
