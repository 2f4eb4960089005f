package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"zero/experiments"
	"zero/trainer"
)

const usage = `usage: zero <command> [flags]

commands:
  train       run self-play training
  tournament  play a round robin between agent variants`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "train":
		err = train(ctx, os.Args[2:])
	case "tournament":
		err = tournament(ctx, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func train(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a yaml training config")
	generations := flags.Int("generations", 0, "Stop after this many generations, 0 runs until interrupted")
	logDir := flags.String("logs", "logs", "Directory for log files")
	flags.Parse(args)

	cfg := trainer.DefaultConfig()
	if *configPath != "" {
		loaded, err := trainer.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *generations > 0 {
		cfg.MaxGenerations = *generations
	}

	closeLog, err := setupLogging(*logDir, "train")
	if err != nil {
		return err
	}
	defer closeLog()

	t, err := trainer.New(cfg, log.Logger)
	if err != nil {
		return err
	}
	return t.Run(ctx)
}

func tournament(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("tournament", flag.ExitOnError)
	setupPath := flags.String("setup", "", "Path to a yaml tournament setup")
	checkpoint := flags.String("checkpoint", "", "Overrides the checkpoint in the setup")
	logDir := flags.String("logs", "logs", "Directory for log files")
	flags.Parse(args)

	if *setupPath == "" {
		return fmt.Errorf("-setup is required")
	}
	setup, err := experiments.LoadSetup(*setupPath)
	if err != nil {
		return err
	}
	if *checkpoint != "" {
		setup.Checkpoint = *checkpoint
	}

	closeLog, err := setupLogging(*logDir, setup.Name)
	if err != nil {
		return err
	}
	defer closeLog()

	_, err = experiments.Run(ctx, setup, log.Logger)
	return err
}

// setupLogging writes human readable logs to stderr and json logs to
// <dir>/<timestamp>_<name>.log.
func setupLogging(dir, name string) (func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", time.Now().Format("20060102_150405"), name))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	return func() { f.Close() }, nil
}
