// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/timeline/capture"
	"github.com/bureau-foundation/timeline/lib/clock"
	"github.com/bureau-foundation/timeline/timeline"
)

// runCapture runs one capture session: producers, the autoflush loop,
// the drain loop, and the optional metrics server. It returns once the
// producers have stopped and everything they emitted that survived has
// been written.
func runCapture(ctx context.Context, opts *options, clk clock.Clock, logger *slog.Logger) error {
	cfg := opts.config

	compression, err := capture.ParseCompression(cfg.Capture.Compression)
	if err != nil {
		return err
	}

	tl, err := timeline.New(timeline.Options{
		Kinds:             cfg.StreamKinds(),
		AutoflushInterval: cfg.Timeline.AutoflushInterval,
		Clock:             clk,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	defer tl.Close()

	reader, err := tl.NewReader(logger)
	if err != nil {
		return err
	}
	defer reader.Close()

	// The listener is bound before anything runs so a bad address
	// fails the command instead of a goroutine.
	var metricsListener net.Listener
	if cfg.Metrics.Listen != "" {
		metricsListener, err = net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		defer metricsListener.Close()
	}

	file, err := os.Create(cfg.Capture.Output)
	if err != nil {
		return fmt.Errorf("creating capture file: %w", err)
	}
	defer file.Close()
	buffered := bufio.NewWriter(file)

	writer, err := capture.NewWriter(buffered, capture.WriterOptions{
		Streams:     tl.Kinds(),
		Compression: compression,
		Digests:     cfg.Capture.DigestEnabled(),
		StartedAt:   clk.Now(),
	})
	if err != nil {
		return err
	}

	// The services outlive ctx: after a signal the drainer must still
	// collect what the final flush makes visible. A failing service
	// stops the producers.
	serviceContext, cancelServices := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelServices()
	services, servicesContext := errgroup.WithContext(serviceContext)
	producerContext, cancelProducers := context.WithCancel(ctx)
	defer cancelProducers()
	stopProducers := context.AfterFunc(servicesContext, cancelProducers)
	defer stopProducers()

	services.Go(func() error { return tl.Run(servicesContext) })
	services.Go(func() error { return newDrainer(reader, writer, logger).run(servicesContext) })
	if metricsListener != nil {
		collector := timeline.NewCollector(tl)
		collector.AttachReader(reader)
		handler, err := newMetricsHandler(collector)
		if err != nil {
			cancelServices()
			services.Wait()
			return fmt.Errorf("registering metrics: %w", err)
		}
		services.Go(func() error { return serveMetrics(servicesContext, metricsListener, handler, logger) })
	}

	logger.Info("capture running",
		"output", cfg.Capture.Output,
		"streams", cfg.Timeline.Streams,
		"compression", compression.String(),
		"autoflush_interval", cfg.Timeline.AutoflushInterval,
		"producers", opts.producers.Count,
		"rate", opts.producers.Rate,
	)

	producerErr := runProducers(producerContext, tl, opts.producers)
	logger.Info("producers stopped, draining")

	// Finalize the partial packets so the drainer's last pass sees
	// them, then stop the services.
	if err := tl.Flush(); err != nil {
		producerErr = errors.Join(producerErr, err)
	}
	cancelServices()
	servicesErr := services.Wait()

	closeErr := writer.Close()
	if closeErr == nil {
		closeErr = buffered.Flush()
	}
	if closeErr == nil {
		closeErr = file.Close()
	}
	if closeErr != nil {
		closeErr = fmt.Errorf("finishing capture file: %w", closeErr)
	}

	for _, stats := range reader.Stats() {
		logger.Info("stream collected",
			"stream", stats.Kind.String(),
			"packets", stats.Packets,
			"bytes", stats.Bytes,
			"lost", stats.Lost,
		)
	}
	return errors.Join(producerErr, servicesErr, closeErr)
}
