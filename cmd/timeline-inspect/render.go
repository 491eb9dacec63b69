// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styles holds the text styles of the human-readable output. The zero
// value renders plain text.
type styles struct {
	heading lipgloss.Style
	label   lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	faint   lipgloss.Style
}

func plainStyles() styles {
	plain := lipgloss.NewStyle()
	return styles{heading: plain, label: plain, good: plain, bad: plain, faint: plain}
}

// terminalStyles returns colored styles for output written through
// renderer.
func terminalStyles(renderer *lipgloss.Renderer) styles {
	return styles{
		heading: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		label:   renderer.NewStyle().Foreground(lipgloss.Color("245")),
		good:    renderer.NewStyle().Foreground(lipgloss.Color("78")),
		bad:     renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		faint:   renderer.NewStyle().Faint(true),
	}
}

// streamColumns are the table columns, in order.
var streamColumns = []struct {
	title string
	width int
	align lipgloss.Position
}{
	{"STREAM", 12, lipgloss.Left},
	{"PACKETS", 9, lipgloss.Right},
	{"BYTES", 11, lipgloss.Right},
	{"STORED", 11, lipgloss.Right},
	{"MESSAGES", 10, lipgloss.Right},
	{"GAPS", 6, lipgloss.Right},
	{"LOST", 8, lipgloss.Right},
	{"RESYNCS", 8, lipgloss.Right},
}

// tableRow lays out one table row, rendering each cell in its column's
// width and alignment so styled cells stay aligned.
func tableRow(cells []string, style lipgloss.Style) string {
	var row strings.Builder
	for i, column := range streamColumns {
		row.WriteString(style.Width(column.width).Align(column.align).Render(cells[i]))
	}
	return row.String()
}

func renderText(w io.Writer, summary *Summary, style styles) {
	field := func(name, value string) {
		fmt.Fprintf(w, "%s %s\n", style.label.Width(12).Render(name+":"), value)
	}

	fmt.Fprintln(w, style.heading.Render("Capture"))
	field("started", summary.StartedAt.Format(time.RFC3339Nano))
	field("format", fmt.Sprintf("version %d, %d × %d-byte packets per stream",
		summary.Version, summary.PacketCount, summary.PacketSize))
	field("compression", summary.Compression)
	digests := "off"
	if summary.Digests {
		digests = "verified"
	}
	field("digests", digests)
	field("frames", fmt.Sprintf("%d", summary.Frames))
	fmt.Fprintln(w)

	fmt.Fprintln(w, style.heading.Render("Streams"))
	titles := make([]string, len(streamColumns))
	for i, column := range streamColumns {
		titles[i] = column.title
	}
	fmt.Fprintln(w, tableRow(titles, style.label))
	for _, stream := range summary.Streams {
		cells := []string{
			stream.Stream,
			fmt.Sprintf("%d", stream.Packets),
			fmt.Sprintf("%d", stream.Bytes),
			fmt.Sprintf("%d", stream.StoredBytes),
			fmt.Sprintf("%d", stream.Messages),
			sequenceValue(stream, stream.Gaps),
			sequenceValue(stream, stream.Lost),
			sequenceValue(stream, stream.Resyncs),
		}
		cellStyle := lipgloss.NewStyle()
		if stream.Lost > 0 {
			cellStyle = style.bad
		}
		fmt.Fprintln(w, tableRow(cells, cellStyle))
	}
	fmt.Fprintln(w)

	if summary.OK() {
		fmt.Fprintln(w, style.good.Render("ok: capture complete, no problems found"))
		return
	}
	fmt.Fprintln(w, style.bad.Render(fmt.Sprintf("%d problem(s):", len(summary.Problems))))
	for _, problem := range summary.Problems {
		fmt.Fprintf(w, "  %s\n", problem)
	}
}

// sequenceValue renders a sequence counter, or "-" for an unnumbered
// stream where it has no meaning.
func sequenceValue(stream StreamSummary, value uint64) string {
	if !stream.Numbered {
		return "-"
	}
	return fmt.Sprintf("%d", value)
}

func renderFrameText(w io.Writer, frame FrameLine, style styles) {
	sequence := "-"
	if frame.Numbered {
		sequence = fmt.Sprintf("%d", frame.Sequence)
	}
	line := fmt.Sprintf("%6d  %-12s seq %-10s %4d messages %5d bytes (%s, %d stored)",
		frame.Index, frame.Stream, sequence, frame.Messages, frame.Bytes, frame.Compression, frame.StoredBytes)
	switch {
	case frame.Lost > 0:
		line = style.bad.Render(fmt.Sprintf("%s  lost %d", line, frame.Lost))
	case frame.Resync:
		line = style.faint.Render(line + "  resync")
	}
	fmt.Fprintln(w, line)
}

func renderJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
