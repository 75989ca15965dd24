package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/apiwatch/apiwatch/internal/api"
	"github.com/apiwatch/apiwatch/internal/config"
	"github.com/apiwatch/apiwatch/internal/monitor"
	"github.com/apiwatch/apiwatch/internal/notifier"
	"github.com/apiwatch/apiwatch/internal/obs"
	pg "github.com/apiwatch/apiwatch/internal/repository/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config/apiwatch.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting apiwatch",
		zap.Duration("interval", cfg.Monitor.Interval),
		zap.Int64("latency_threshold_ms", cfg.Monitor.LatencyThresholdMS),
		zap.String("addr", cfg.Server.Addr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	endpointRepo := pg.NewEndpointRepo(db)
	resultRepo := pg.NewResultRepo(db)
	alertRepo := pg.NewAlertRepo(db)
	tx := pg.NewTransactor(db, l)

	mailer := notifier.NewMailer(cfg.SMTP, l)
	sink := notifier.NewEmailNotifier(l, mailer, cfg.SMTP.To)

	prober := monitor.NewProber(l, monitor.HTTPConfig{
		DefaultTimeout:  cfg.Monitor.DefaultTimeout,
		UserAgent:       cfg.Monitor.UserAgent,
		VerifyTLS:       cfg.Monitor.VerifyTLS,
		FollowRedirects: cfg.Monitor.FollowRedirects,
	})
	engine := monitor.NewAlertEngine(l, alertRepo, resultRepo, tx, sink, cfg.Monitor.LatencyThresholdMS)
	stats := monitor.NewStatsAggregator(resultRepo)
	sched := monitor.NewScheduler(l, endpointRepo, prober, engine, monitor.SchedulerConfig{
		Interval:       cfg.Monitor.Interval,
		MaxConcurrency: cfg.Monitor.MaxConcurrency,
	})

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	handlers := api.NewHandlers(l, endpointRepo, resultRepo, alertRepo, sched, stats, cfg.Monitor.DefaultTimeout)
	srv := api.NewServer(cfg.Server.Addr, handlers, l)

	sched.Start()
	srv.Start()

	<-ctx.Done()

	sched.Stop()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
