package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/api"
	"github.com/hackgods/consultation-dashboard/internal/config"
	"github.com/hackgods/consultation-dashboard/internal/consultation"
	"github.com/hackgods/consultation-dashboard/internal/httpclient"
	"github.com/hackgods/consultation-dashboard/internal/identity"
	"github.com/hackgods/consultation-dashboard/internal/logging"
	"github.com/hackgods/consultation-dashboard/internal/metrics"
	"github.com/hackgods/consultation-dashboard/internal/notification"
	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.RequireUpstreams(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		logger.Fatal("invalid TIMEZONE", zap.String("timezone", cfg.Schedule.Timezone), zap.Error(err))
	}
	locale := schedule.LookupLocale(cfg.Schedule.Locale)

	var weekStart *time.Weekday
	if cfg.Schedule.WeekStart != "" {
		wd, ok := schedule.ParseWeekday(cfg.Schedule.WeekStart)
		if !ok {
			logger.Fatal("invalid WEEK_START", zap.String("week_start", cfg.Schedule.WeekStart))
		}
		weekStart = &wd
	}

	orderHTTP := mustClient(logger, cfg.Upstreams.OrderServiceURL, cfg.RequestTimeout)
	notifyHTTP := mustClient(logger, cfg.Upstreams.NotificationServiceURL, cfg.RequestTimeout)
	identityHTTP := mustClient(logger, cfg.Upstreams.IdentityServiceURL, cfg.RequestTimeout)

	reg := metrics.New()

	board := consultation.NewBoard(consultation.NewHTTPOrderClient(orderHTTP, cfg.Session.UserID), consultation.BoardConfig{
		NurseID:   cfg.Session.NurseID,
		Location:  loc,
		Locale:    locale,
		WeekStart: weekStart,
		Logger:    logger.Named("board"),
		Metrics:   reg,
	})

	engine := notification.NewEngine(notification.NewHTTPSource(notifyHTTP, notification.HTTPSourceConfig{
		ListPath: cfg.Upstreams.NotificationListPath,
		ReadPath: cfg.Upstreams.NotificationReadPath,
		Audience: cfg.Session.NurseID,
		UserID:   cfg.Session.UserID,
	}), notification.EngineConfig{
		PreviewLimit: cfg.Notify.PanelPreviewLimit,
		BadgeCap:     cfg.Notify.BadgeCap,
		AckTimeout:   cfg.RequestTimeout,
		Logger:       logger.Named("notifications"),
		Metrics:      reg,
	})
	defer engine.Close()

	formatter := notification.NewFormatter(schedule.OffsetCorrector{Offset: cfg.Notify.StorageOffset}, loc, nil)

	logger.Info("dashboard starting up",
		zap.String("nurse_id", cfg.Session.NurseID),
		zap.String("timezone", loc.String()),
		zap.String("locale", locale.Tag.String()),
		zap.Duration("poll_interval", cfg.Notify.PollInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first load failing is not fatal; the board stays empty until the
	// next refresh succeeds.
	loadCtx, cancelLoad := context.WithTimeout(rootCtx, cfg.RequestTimeout)
	if err := board.Refresh(loadCtx); err != nil {
		logger.Warn("initial consultation load failed", zap.Error(err))
	}
	cancelLoad()

	poller := notification.NewPoller(engine, cfg.Notify.PollInterval, logger.Named("poller"))
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		poller.Run(rootCtx)
	}()

	router := api.NewDashboardRouter(api.DashboardConfig{
		Board:         board,
		Notifications: engine,
		Formatter:     formatter,
		Identity:      identity.NewClient(identityHTTP),
		UserID:        cfg.Session.UserID,
		Logger:        logger.Named("http"),
		Metrics:       reg,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", srv.Addr))

	<-rootCtx.Done()
	logger.Info("shutting down dashboard")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	<-pollDone
}

func mustClient(logger *zap.Logger, baseURL string, timeout time.Duration) *httpclient.Client {
	c, err := httpclient.New(baseURL, timeout)
	if err != nil {
		logger.Fatal("invalid upstream url", zap.String("url", baseURL), zap.Error(err))
	}
	return c
}
