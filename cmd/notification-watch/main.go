package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/config"
	"github.com/hackgods/consultation-dashboard/internal/httpclient"
	"github.com/hackgods/consultation-dashboard/internal/logging"
	"github.com/hackgods/consultation-dashboard/internal/notification"
	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

// notification-watch polls the notification service without a UI and logs
// every change of the unread badge.
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

	if cfg.Upstreams.NotificationServiceURL == "" {
		logger.Fatal("NOTIFICATION_SERVICE_URL is required")
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		logger.Fatal("invalid TIMEZONE", zap.String("timezone", cfg.Schedule.Timezone), zap.Error(err))
	}

	client, err := httpclient.New(cfg.Upstreams.NotificationServiceURL, cfg.RequestTimeout)
	if err != nil {
		logger.Fatal("invalid NOTIFICATION_SERVICE_URL", zap.Error(err))
	}

	engine := notification.NewEngine(notification.NewHTTPSource(client, notification.HTTPSourceConfig{
		ListPath: cfg.Upstreams.NotificationListPath,
		ReadPath: cfg.Upstreams.NotificationReadPath,
		Audience: cfg.Session.NurseID,
		UserID:   cfg.Session.UserID,
	}), notification.EngineConfig{
		PreviewLimit: cfg.Notify.PanelPreviewLimit,
		BadgeCap:     cfg.Notify.BadgeCap,
		Logger:       logger.Named("notifications"),
	})
	defer engine.Close()

	formatter := notification.NewFormatter(schedule.OffsetCorrector{Offset: cfg.Notify.StorageOffset}, loc, nil)

	logger.Info("notification-watch starting up",
		zap.String("audience", cfg.Session.NurseID),
		zap.Duration("interval", cfg.Notify.PollInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	last := -1
	poller := notification.NewPoller(engine, cfg.Notify.PollInterval, logger.Named("poller"))
	poller.OnRefresh = func(items []notification.Notification) {
		unread := notification.CountUnread(items)
		if unread == last {
			return
		}
		last = unread

		fields := []zap.Field{
			zap.Int("unread", unread),
			zap.String("badge", notification.FormatBadge(unread, cfg.Notify.BadgeCap)),
			zap.Int("total", len(items)),
		}
		if len(items) > 0 {
			fields = append(fields,
				zap.String("latest_title", items[0].Title),
				zap.String("latest_age", formatter.Relative(items[0].CreatedAt)))
		}
		logger.Info("badge changed", fields...)
	}

	poller.Run(rootCtx)
	logger.Info("shutdown signal received, stopping notification-watch")
}
