// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/timeline/capture"
	"github.com/bureau-foundation/timeline/timeline"
)

// drainer copies wire packets from the timeline reader into the
// capture writer.
type drainer struct {
	reader *timeline.Reader
	writer *capture.Writer
	buffer []byte
	logger *slog.Logger
}

func newDrainer(reader *timeline.Reader, writer *capture.Writer, logger *slog.Logger) *drainer {
	return &drainer{
		reader: reader,
		writer: writer,
		buffer: make([]byte, 4*timeline.MinReadSize),
		logger: logger,
	}
}

// run blocks on the reader and writes whatever it returns until ctx is
// done, then makes one final non-blocking pass so packets flushed
// during shutdown reach the capture.
func (d *drainer) run(ctx context.Context) error {
	for {
		n, err := d.reader.Read(ctx, d.buffer)
		if err != nil {
			if ctx.Err() != nil {
				return d.drainRemaining()
			}
			return fmt.Errorf("reading timeline: %w", err)
		}
		if err := d.writer.WriteWire(d.buffer[:n]); err != nil {
			return err
		}
	}
}

func (d *drainer) drainRemaining() error {
	for {
		n, err := d.reader.TryRead(d.buffer)
		if err != nil {
			return fmt.Errorf("draining timeline: %w", err)
		}
		if n == 0 {
			stats := d.writer.Stats()
			d.logger.Info("capture drained",
				"frames", stats.Frames,
				"raw_bytes", stats.RawBytes,
				"stored_bytes", stats.DataBytes,
				"lost", stats.Lost,
			)
			return nil
		}
		if err := d.writer.WriteWire(d.buffer[:n]); err != nil {
			return err
		}
	}
}
