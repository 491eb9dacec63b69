// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/timeline/lib/process"
	"github.com/bureau-foundation/timeline/lib/version"
)

func main() {
	process.Run(func() error { return run(os.Args[1:], os.Stdin, os.Stdout) })
}

// verificationExitCode is the exit status when the capture was read
// but has problems, distinct from failing to read it at all.
const verificationExitCode = 2

// errVerification is returned after the output when the capture has
// problems. The problems themselves are part of the output.
var errVerification = errors.New("capture verification failed")

// jsonReport is the --json output.
type jsonReport struct {
	*Summary
	FrameList []FrameLine `json:"frame_list,omitempty"`
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		jsonOutput  bool
		listFrames  bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("timeline-inspect", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.Usage = func() {
		fmt.Fprintf(stdout, "Usage: timeline-inspect [flags] CAPTURE\n\nReads CAPTURE (\"-\" for stdin), verifies it, and summarizes each stream.\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	flagSet.BoolVar(&jsonOutput, "json", false, "print the summary as JSON")
	flagSet.BoolVar(&listFrames, "frames", false, "list every frame")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print(stdout, "timeline-inspect")
		return nil
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected one capture file, got %d arguments", flagSet.NArg())
	}

	input := stdin
	if path := flagSet.Arg(0); path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	}

	style := plainStyles()
	if file, ok := stdout.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		style = terminalStyles(lipgloss.NewRenderer(file))
	}

	var frames []FrameLine
	var onFrame func(FrameLine)
	switch {
	case listFrames && jsonOutput:
		onFrame = func(frame FrameLine) { frames = append(frames, frame) }
	case listFrames:
		onFrame = func(frame FrameLine) { renderFrameText(stdout, frame, style) }
	}

	summary, err := inspect(input, onFrame)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := renderJSON(stdout, jsonReport{Summary: summary, FrameList: frames}); err != nil {
			return err
		}
	} else {
		if listFrames {
			fmt.Fprintln(stdout)
		}
		renderText(stdout, summary, style)
	}

	if !summary.OK() {
		return process.WithExitCode(
			fmt.Errorf("%w: %d problem(s)", errVerification, len(summary.Problems)),
			verificationExitCode)
	}
	return nil
}
