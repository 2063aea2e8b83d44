package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/CBoon99/spiralbot-v2/internal/config"
	"github.com/CBoon99/spiralbot-v2/internal/market"
	"github.com/CBoon99/spiralbot-v2/internal/supervisor"
	"github.com/CBoon99/spiralbot-v2/internal/util"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer, opts ...supervisor.Option) int {
	fs := flag.NewFlagSet("spiralbot", flag.ContinueOnError)
	fs.SetOutput(out)
	debug := fs.Bool("debug", false, "verbose logging, passed through to children")
	test := fs.Bool("test", false, "run preflight checks and exit")
	configPath := fs.String("config", "internal/config/config.yaml", "config file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	level := "info"
	if *debug {
		level = "debug"
	}
	log := util.NewLogger(level)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return 1
	}
	if *debug {
		cfg.App.LogLevel = "debug"
	}

	pinger := market.NewClient(
		cfg.Market.BaseURL,
		cfg.Market.VsCurrency,
		cfg.Market.TopN,
		0,
		log,
		market.WithTimeout(time.Duration(cfg.Market.RequestTimeout)*time.Second),
	)
	opts = append(opts, supervisor.WithDebug(*debug), supervisor.WithPrompt(in, out))
	sup := supervisor.New(cfg, pinger, log, opts...)

	ctx := context.Background()

	result, err := sup.Preflight(ctx)
	if err != nil {
		log.Error().Err(err).Str("category", category(err)).Msg("preflight failed")
		return 1
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	if *test {
		fmt.Fprintln(out, "preflight checks passed")
		return 0
	}

	if err := sup.ReconcileExistingInstance(); err != nil {
		if errors.Is(err, supervisor.ErrAborted) {
			log.Info().Msg("launch aborted by operator")
			return 0
		}
		log.Error().Err(err).Str("category", category(err)).Msg("reconcile failed")
		return 1
	}

	mode, err := supervisor.PromptMode(in, out)
	if err != nil {
		log.Error().Err(err).Msg("invalid selection")
		return 1
	}

	if err := sup.Launch(ctx, mode); err != nil {
		log.Error().Err(err).Str("category", category(err)).Msg("run failed")
		return 1
	}
	log.Info().Msg("run complete")
	return 0
}

// category maps a failure to the operator-facing check that caught it.
func category(err error) string {
	switch {
	case errors.Is(err, supervisor.ErrRuntimeMissing):
		return "runtime"
	case errors.Is(err, supervisor.ErrDependencyMissing):
		return "dependency"
	case errors.Is(err, supervisor.ErrConnectivityDegraded):
		return "connectivity"
	case errors.Is(err, supervisor.ErrInvalidInput):
		return "input"
	case errors.Is(err, supervisor.ErrLivenessTimeout):
		return "liveness"
	case errors.Is(err, supervisor.ErrLaunchFailure):
		return "launch"
	default:
		return "internal"
	}
}
