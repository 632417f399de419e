package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"weekcal/internal/capture"
	"weekcal/internal/config"
	appLog "weekcal/internal/log"
	"weekcal/internal/refresh"
	"weekcal/internal/web"
)

const (
	exitConfig = 1
	exitFeed   = 2
)

type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(exitConfig)
	}
	if err := conf.ApplyEnv(flags.envFile); err != nil {
		appLog.Error("failed to apply environment", err, "env_file", flags.envFile)
		os.Exit(exitConfig)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(exitConfig)
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("weekcal starting", "version", "1.0.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"output", conf.Output.HTML,
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	runner, err := refresh.NewRunner(conf, nil, nil)
	if err != nil {
		appLog.Error("failed to initialize refresh", err)
		os.Exit(exitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		os.Exit(runOnce(ctx, runner))
	}

	sched, err := refresh.NewScheduler(conf.RefreshCron, runner)
	if err != nil {
		appLog.Error("failed to initialize scheduler", err)
		os.Exit(exitConfig)
	}
	srv := web.NewServer(conf, runner)

	// Bind before the first refresh so its capture can reach the page.
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		appLog.Error("failed to listen", err, "listen", conf.Listen)
		os.Exit(exitConfig)
	}
	if conf.Output.HTML == "" {
		// Nothing on disk to capture; point the browser at our own server.
		runner.SetCapture(capture.CapturePNG, web.LocalURL(ln.Addr().String()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.Serve(gctx, srv, ln)
	})
	g.Go(func() error {
		sched.Start(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		appLog.Error("weekcal stopped with error", err)
		os.Exit(exitConfig)
	}
	appLog.Info("weekcal exiting")
}

// runOnce performs a single refresh and returns the process exit code.
func runOnce(ctx context.Context, runner *refresh.Runner) int {
	snap, err := runner.Run(ctx, time.Now().In(runner.Location()))
	switch {
	case errors.Is(err, refresh.ErrNoSources):
		appLog.Error("no calendar configured; set ICS_URL or add an ics entry", err)
		return exitConfig
	case err != nil:
		appLog.Error("refresh failed", err)
		return exitFeed
	}
	appLog.Info("week rendered", "run_id", snap.RunID, "tiles", snap.View.Stats.Tiles)
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional dotenv file with environment overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch+render cycle and exit")

	flag.Parse()

	return cfg
}
