package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
	"github.com/hailam/chesscore/internal/uci"
)

func main() {
	// stdout carries the protocol, so logs go to stderr.
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal().Err(err).Msg("chesscore")
	}
}

func run() error {
	cfg := config.New()
	if err := cfg.Load(os.Args[1:]); err != nil {
		return err
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())
	if f := cfg.ConfigFile(); f != "" {
		log.Info().Str("file", f).Msg("config loaded")
	}

	// Start CPU profiling if requested via environment variable
	if profilePath := os.Getenv("CPUPROFILE"); profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("file", profilePath).Msg("CPU profiling enabled")
	}

	eng, err := engine.NewEngine(cfg.EngineOptions())
	if err != nil {
		return err
	}
	defer eng.Close()

	var store *storage.AnalysisStore
	if cfg.GetBool(config.KeyAnalysisStore) {
		dir, err := storage.GetDatabaseDir(cfg.GetString(config.KeyDataDir))
		if err != nil {
			return err
		}
		if store, err = storage.Open(dir); err != nil {
			return err
		}
		defer store.Close()
		log.Info().Str("dir", dir).Msg("analysis store opened")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := eng.Options()
	log.Info().Int("hash", opts.Hash).Int("threads", opts.Threads).Msg("engine ready")

	// Reading stdin cannot be interrupted, so a signal ends the process
	// without waiting for the protocol loop.
	errc := make(chan error, 1)
	go func() { errc <- uci.New(eng, store, os.Stdout).Run(ctx, os.Stdin) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info().Msg("interrupted")
		return nil
	}
}
