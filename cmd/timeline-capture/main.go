// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/timeline/lib/clock"
	"github.com/bureau-foundation/timeline/lib/config"
	"github.com/bureau-foundation/timeline/lib/logging"
	"github.com/bureau-foundation/timeline/lib/process"
	"github.com/bureau-foundation/timeline/lib/version"
)

func main() {
	process.Run(func() error { return run(os.Args[1:]) })
}

// options holds everything run needs after flags and configuration
// are merged.
type options struct {
	config    *config.Config
	producers producerOptions
	duration  time.Duration
}

// parseOptions parses args and loads the configuration. Flags that
// were set explicitly override the file. It returns nil options when
// only --help or --version output was requested.
func parseOptions(args []string, stdout io.Writer) (*options, error) {
	var (
		configPath    string
		output        string
		compression   string
		metricsListen string
		logLevel      string
		logFormat     string
		showVersion   bool
		result        options
	)

	flagSet := pflag.NewFlagSet("timeline-capture", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVar(&configPath, "config", "", "configuration file (YAML or JSONC; default: $"+config.EnvironmentVariable+")")
	flagSet.StringVarP(&output, "output", "o", "", "capture file to write (overrides capture.output)")
	flagSet.StringVar(&compression, "compression", "", "frame compression: none, lz4, or zstd (overrides capture.compression)")
	flagSet.StringVar(&metricsListen, "metrics-listen", "", "address to serve /metrics on (overrides metrics.listen)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, or error (overrides log.level)")
	flagSet.StringVar(&logFormat, "log-format", "", "log format: auto, text, or json (overrides log.format)")
	flagSet.IntVar(&result.producers.Count, "producers", 4, "number of synthetic producers")
	flagSet.Float64Var(&result.producers.Rate, "rate", 1000, "messages per second per producer (0 for unlimited)")
	flagSet.Uint64Var(&result.producers.Messages, "messages", 0, "stop after each producer emits this many messages (0 for no limit)")
	flagSet.DurationVar(&result.duration, "duration", 0, "stop after this long (0 to run until interrupted)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil
		}
		return nil, err
	}
	if showVersion {
		version.Print(stdout, "timeline-capture")
		return nil, nil
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if result.duration < 0 {
		return nil, fmt.Errorf("--duration must not be negative, got %v", result.duration)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if flagSet.Changed("output") {
		cfg.Capture.Output = output
	}
	if flagSet.Changed("compression") {
		cfg.Capture.Compression = compression
	}
	if flagSet.Changed("metrics-listen") {
		cfg.Metrics.Listen = metricsListen
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	result.config = cfg
	return &result, nil
}

func run(args []string) error {
	opts, err := parseOptions(args, os.Stdout)
	if err != nil || opts == nil {
		return err
	}
	cfg := opts.config

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	return runCapture(ctx, opts, clock.Real(), logger)
}
