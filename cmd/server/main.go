package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/auth"
	"github.com/mamadbah2/farmcoop/internal/config"
	"github.com/mamadbah2/farmcoop/internal/repository"
	"github.com/mamadbah2/farmcoop/internal/repository/memory"
	"github.com/mamadbah2/farmcoop/internal/repository/mongodb"
	"github.com/mamadbah2/farmcoop/internal/repository/sheets"
	"github.com/mamadbah2/farmcoop/internal/scheduler"
	"github.com/mamadbah2/farmcoop/internal/server/handlers"
	"github.com/mamadbah2/farmcoop/internal/server/router"
	goalsvc "github.com/mamadbah2/farmcoop/internal/service/goals"
	inventorysvc "github.com/mamadbah2/farmcoop/internal/service/inventory"
	"github.com/mamadbah2/farmcoop/internal/service/notify"
	reportingsvc "github.com/mamadbah2/farmcoop/internal/service/reporting"
	salesvc "github.com/mamadbah2/farmcoop/internal/service/sales"
	whatsappclient "github.com/mamadbah2/farmcoop/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmcoop/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store := openStore(cfg, baseLogger)
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	sinks := notify.Multi{notify.NewStoreNotifier(store)}
	var whatsapp *notify.WhatsAppNotifier
	if cfg.WhatsApp.Enabled() {
		client := whatsappclient.NewClient(whatsappclient.Options{
			AccessToken:   cfg.WhatsApp.AccessToken,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			BaseURL:       cfg.WhatsApp.BaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			RetryCount:    2,
		})
		whatsapp = notify.NewWhatsAppNotifier(client, cfg.WhatsApp.Recipients, logger.Named(baseLogger, "notify.whatsapp"))
		sinks = append(sinks, whatsapp)
		baseLogger.Info("whatsapp notifications enabled", zap.Int("recipients", len(cfg.WhatsApp.Recipients)))
	} else {
		baseLogger.Warn("whatsapp not configured, notifications are stored only")
	}
	dispatcher := notify.NewDispatcher(sinks, logger.Named(baseLogger, "notify"))

	inventory := inventorysvc.NewService(store, dispatcher, cfg.Store.TxTimeout, logger.Named(baseLogger, "svc.inventory"))
	sales := salesvc.NewService(store, dispatcher, cfg.Store.TxTimeout, logger.Named(baseLogger, "svc.sales"))
	goals := goalsvc.NewService(store, logger.Named(baseLogger, "svc.goals"))
	reporting := reportingsvc.NewService(store, logger.Named(baseLogger, "svc.reporting"))

	var exporter scheduler.GoalExporter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = sheets.NewGoalExporter(sheetsRepo, logger.Named(baseLogger, "export.sheets"))
	}
	var sender scheduler.MessageSender
	if whatsapp != nil {
		sender = whatsapp
	}

	sched, err := scheduler.NewScheduler(cfg.Scheduler, goals, reporting, exporter, sender, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	handler := handlers.New(inventory, sales, goals, store, logger.Named(baseLogger, "handlers"))
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, 0)
	engine, err := router.New(handler, jwtSvc, router.Options{
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		TrustedProxies:     cfg.Server.TrustedProxies,
	}, logger.Named(baseLogger, "router"))
	if err != nil {
		baseLogger.Fatal("failed to init router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	dispatcher.Wait()
}

func openStore(cfg *config.Config, base *zap.Logger) repository.Store {
	if cfg.Store.Driver == config.StoreMemory {
		base.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named(base, "repo.mongodb"))
	if err != nil {
		base.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		base.Fatal("failed to create mongodb indexes", zap.Error(err))
	}
	return mongoRepo
}
