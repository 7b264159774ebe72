package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"wristcal/internal/agenda"
	"wristcal/internal/config"
	"wristcal/internal/ics"
	appLog "wristcal/internal/log"
	"wristcal/internal/web"
)

type flagConfig struct {
	configPath   string
	accountsPath string
	listen       string
}

func main() {
	appLog.Info("wristcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.accountsPath != "" {
		conf.AccountsPath = flags.accountsPath
	}

	appLog.SetLevel(appLog.Level(conf.LogLevel))

	accounts, err := config.LoadAccounts(conf.AccountsPath)
	if err != nil {
		appLog.Error("failed to load accounts", err, "accounts_path", conf.AccountsPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"cache_ttl_minutes", conf.CacheTTLMinutes,
		"timed_horizon_hours", conf.TimedHorizonHours,
		"all_day_horizon_days", conf.AllDayHorizonDays,
		"precache_cron", conf.PrecacheCron,
		"account_count", len(accounts),
	)

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	cache := ics.NewCache(time.Duration(conf.CacheTTLMinutes) * time.Minute)
	svc := agenda.New(
		cache,
		loc,
		time.Duration(conf.MinColumnSpanMinutes)*time.Minute,
		conf.AlarmMarker,
	)
	server := web.NewServer(conf, accounts, svc, cache)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Periodic cache warming. The cache itself never schedules
	// anything; warming is driven from here.
	scheduler := cron.New()
	if conf.PrecacheCron != "" {
		urls := accounts.AllURLs()
		sources := make([]ics.Source, 0, len(urls))
		for _, u := range urls {
			sources = append(sources, ics.Source{ID: "precache", URL: u})
		}
		if _, err := scheduler.AddFunc(conf.PrecacheCron, func() {
			cache.Precache(ctx, sources)
		}); err != nil {
			appLog.Error("failed to schedule precache", err, "cron", conf.PrecacheCron)
			os.Exit(1)
		}
		scheduler.Start()
	}

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: server.Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}

	appLog.Info("wristcal exiting")
	appLog.Sync()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/wristcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.accountsPath, "accounts", "", "Path to accounts file (overrides config if set)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")

	flag.Parse()

	return cfg
}
