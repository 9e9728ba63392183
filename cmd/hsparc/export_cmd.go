// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/drjhoover/hsparc/internal/export"
	"github.com/drjhoover/hsparc/internal/timeseries"
)

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	recordingID := fs.String("recording", "", "recording id (required)")
	configPath := fs.String("config", "", "path to config file (YAML)")
	format := fs.String("format", "csv", "output format (csv)")
	mode := fs.String("mode", "change", "change or timeseries[:rate]")
	outDir := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *recordingID == "" {
		fmt.Fprintln(os.Stderr, "export: --recording is required")
		return exitUsage
	}
	if *format != "csv" {
		// xlsx and sav renderers are external collaborators fed from these
		// same tables.
		fmt.Fprintf(os.Stderr, "export: format %q not built in; use csv\n", *format)
		return exitUsage
	}

	st, cfg, err := openStore(*configPath)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	var builder *export.Builder
	switch {
	case *mode == "change":
		builder = export.NewChangeBuilder()
	case *mode == "timeseries" || strings.HasPrefix(*mode, "timeseries:"):
		rate := cfg.SampleRateHz
		if rest, ok := strings.CutPrefix(*mode, "timeseries:"); ok && rest != "" {
			rate, err = strconv.Atoi(rest)
			if err != nil {
				fmt.Fprintf(os.Stderr, "export: bad rate %q\n", rest)
				return exitUsage
			}
		}
		builder, err = export.NewTimeSeriesBuilder(rate, timeseries.ForwardFill)
		if err != nil {
			return fail(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "export: unknown mode %q\n", *mode)
		return exitUsage
	}

	rec, study, sessions, streams, events, err := loadSelection(ctx, st, *recordingID)
	if err != nil {
		return fail(err)
	}

	tables, err := builder.Build(export.Selection{
		Study:     study,
		Recording: rec,
		Sessions:  sessions,
		Streams:   streams,
		Events:    events,
	})
	if err != nil {
		return fail(err)
	}

	axesPath := filepath.Join(*outDir, fmt.Sprintf("%s_axes.csv", rec.ID))
	buttonsPath := filepath.Join(*outDir, fmt.Sprintf("%s_buttons.csv", rec.ID))
	if err := export.WriteCSV(tables, axesPath, buttonsPath); err != nil {
		return fail(err)
	}

	fmt.Printf("wrote %s (%d rows) and %s (%d rows)\n",
		axesPath, len(tables.Axes), buttonsPath, len(tables.Buttons))
	return exitOK
}
