// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/drjhoover/hsparc/internal/analysis"
)

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	recordingID := fs.String("recording", "", "recording id (required)")
	configPath := fs.String("config", "", "path to config file (YAML)")
	traces := fs.String("traces", "", "comma-separated trace names; empty selects all")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *recordingID == "" {
		fmt.Fprintln(os.Stderr, "analyze: --recording is required")
		return exitUsage
	}

	st, _, err := openStore(*configPath)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	_, _, _, streams, events, err := loadSelection(ctx, st, *recordingID)
	if err != nil {
		return fail(err)
	}

	all := analysis.TracesFromEvents(streams, events)
	selected := selectTraces(all, splitList(*traces))
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "analyze: no matching traces")
		return exitMissing
	}

	results, err := analysis.Analyze(selected)
	if err != nil {
		return fail(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fail(err)
	}
	return exitOK
}

// selectTraces filters by name; the match is case-insensitive on either the
// full "participant: code" name or its code/construct part.
func selectTraces(all []analysis.Trace, names []string) []analysis.Trace {
	if len(names) == 0 {
		return all
	}
	var out []analysis.Trace
	for _, tr := range all {
		full := strings.ToLower(tr.Name)
		short := full
		if i := strings.LastIndex(full, ": "); i >= 0 {
			short = full[i+2:]
		}
		for _, name := range names {
			n := strings.ToLower(name)
			if n == full || n == short {
				out = append(out, tr)
				break
			}
		}
	}
	return out
}
