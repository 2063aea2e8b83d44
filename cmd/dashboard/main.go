package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/CBoon99/spiralbot-v2/internal/config"
	"github.com/CBoon99/spiralbot-v2/internal/dashboard"
	"github.com/CBoon99/spiralbot-v2/internal/util"
)

func main() {
	port := flag.Int("port", 0, "listen port (overrides config)")
	debug := flag.Bool("debug", false, "verbose logging")
	configPath := flag.String("config", "internal/config/config.yaml", "config file")
	flag.Parse()

	boot := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}

	level := cfg.App.LogLevel
	if *debug {
		level = "debug"
	}
	log, logFile, err := util.OpenRunLog(cfg.Paths.DashboardLog, level)
	if err != nil {
		boot.Fatal().Err(err).Msg("open dashboard log")
	}
	defer logFile.Close()

	listenPort := cfg.Supervisor.DashboardPort
	if *port > 0 {
		listenPort = *port
	}
	if listenPort <= 0 {
		listenPort = 8080
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := dashboard.NewServer(cfg, log)
	if err := srv.Run(ctx, listenPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("dashboard stopped")
	}
	log.Info().Msg("dashboard exiting")
}
