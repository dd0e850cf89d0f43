package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"coursecal/internal/calendar"
	"coursecal/internal/capture"
	"coursecal/internal/config"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/metrics"
	"coursecal/internal/scheduler"
	"coursecal/internal/store"
	"coursecal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	} else if err := appLog.SetLevelString(conf.LogLevel); err != nil {
		appLog.Warn("unknown log level; keeping info", "log_level", conf.LogLevel)
	}

	appLog.Info("coursecal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.Week().String(),
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"records_file", conf.RecordsFile,
		"feeds", len(conf.Feeds),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager()
	st := store.New()
	pipeline := scheduler.NewPipeline(conf, ics.NewFetcher(conf.CacheDir), st, m)
	srv := web.NewServer(conf, st, m)

	if flags.once {
		if err := runOnce(ctx, conf, pipeline, srv, flags.snapshot); err != nil {
			appLog.Error("single run failed", err)
			os.Exit(1)
		}
		appLog.Info("coursecal exiting")
		return
	}

	if err := run(ctx, conf, pipeline, srv, flags.snapshot); err != nil {
		appLog.Error("coursecal stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("coursecal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/coursecal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh records once and exit")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Write a PNG of the current month after each refresh")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

// run refreshes once, then serves HTTP and refreshes on schedule until ctx
// is canceled. A failed first refresh is logged; the server still starts
// with an empty store.
func run(ctx context.Context, conf *config.Config, pipeline *scheduler.Pipeline, srv *web.Server, snapshot bool) error {
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", conf.Listen, err)
	}

	var refresher scheduler.Refresher = pipeline
	if snapshot {
		refresher = snapshotRefresher{next: pipeline, conf: conf, baseURL: "http://" + ln.Addr().String()}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, ln) }()

	if err := refresher.Refresh(ctx); err != nil {
		appLog.Warn("initial refresh failed", "err", err)
	}

	sched, err := scheduler.New(conf.RefreshCron, refresher)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		appLog.Info("shutdown requested")
		return <-serveErr
	}
}

// runOnce refreshes the store and optionally captures the current month
// using a short-lived server.
func runOnce(ctx context.Context, conf *config.Config, pipeline *scheduler.Pipeline, srv *web.Server, snapshot bool) error {
	if err := pipeline.Refresh(ctx); err != nil {
		return err
	}
	if !snapshot {
		return nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for snapshot: %w", err)
	}
	serveCtx, cancel := context.WithCancel(ctx)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(serveCtx, ln) }()

	captureErr := captureMonth(ctx, conf, "http://"+ln.Addr().String())
	cancel()
	return errors.Join(captureErr, <-serveErr)
}

// snapshotRefresher captures the month page after every successful refresh.
type snapshotRefresher struct {
	next    scheduler.Refresher
	conf    *config.Config
	baseURL string
}

func (r snapshotRefresher) Refresh(ctx context.Context) error {
	if err := r.next.Refresh(ctx); err != nil {
		return err
	}
	if err := captureMonth(ctx, r.conf, r.baseURL); err != nil {
		// A missing browser should not fail the refresh itself.
		appLog.Error("month snapshot failed", err, "path", r.conf.SnapshotPath)
	}
	return nil
}

func captureMonth(ctx context.Context, conf *config.Config, baseURL string) error {
	return capture.CaptureMonthPNG(ctx, capture.Options{
		BaseURL:    baseURL,
		Month:      calendar.DateOf(time.Now().In(conf.Location())),
		OutputPath: conf.SnapshotPath,
	})
}
