// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/drjhoover/hsparc/internal/capture"
	"github.com/drjhoover/hsparc/internal/clock"
	"github.com/drjhoover/hsparc/internal/device"
	"github.com/drjhoover/hsparc/internal/log"
	"github.com/drjhoover/hsparc/internal/recordings"
	"github.com/drjhoover/hsparc/internal/store"
)

func runRecord(args []string) int {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	studyLabel := fs.String("study", "", "study label (required)")
	configPath := fs.String("config", "", "path to config file (YAML)")
	sessionLabel := fs.String("session-label", "", "observer session label")
	devices := fs.String("devices", "", "comma-separated device paths; prompts when empty")
	aliases := fs.String("aliases", "", "comma-separated participant aliases, one per device")
	videoPath := fs.String("video", "", "path of the video file produced by the external recorder")
	pin := fs.String("pin", "", "study PIN; required to seal the video at stop")
	recognition := fs.Bool("recognition-check", false, "mark the session as requiring a recognition check")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *studyLabel == "" {
		fmt.Fprintln(os.Stderr, "record: --study is required")
		return exitUsage
	}

	st, _, err := openStore(*configPath)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = st.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.WithComponent("record")

	study, err := st.GetStudyByLabel(ctx, *studyLabel)
	if err != nil {
		return fail(err)
	}

	devicePaths := splitList(*devices)
	if len(devicePaths) == 0 {
		devicePaths, err = promptAssignments(ctx)
		if err != nil {
			return fail(err)
		}
	}
	if len(devicePaths) == 0 {
		fmt.Fprintln(os.Stderr, "record: no controllers assigned")
		return exitUsage
	}
	aliasList := splitList(*aliases)

	video := *videoPath
	if video != "" {
		video, _ = filepath.Abs(video)
	}
	rec, err := st.CreateRecording(ctx, study.ID, video)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(st.MediaDir(study.ID, rec.ID), 0o750); err != nil {
		return fail(fmt.Errorf("%w: create media dir: %v", store.ErrStore, err))
	}

	sess, err := st.CreateSession(ctx, rec.ID, *sessionLabel, *recognition)
	if err != nil {
		return fail(err)
	}

	var assignments []capture.Assignment
	for i, path := range devicePaths {
		alias := ""
		if i < len(aliasList) {
			alias = aliasList[i]
		}
		stream, err := st.CreateStream(ctx, store.Stream{
			SessionID:  sess.ID,
			DeviceName: filepath.Base(path),
			Alias:      alias,
		})
		if err != nil {
			return fail(err)
		}
		assignments = append(assignments, capture.Assignment{
			DevicePath: path,
			StreamID:   stream.ID,
			Alias:      alias,
		})
	}

	pipeline := capture.New(st, rec.ID, sess.ID, clock.New(), assignments)
	if err := pipeline.Start(ctx); err != nil {
		return fail(err)
	}

	fmt.Printf("recording %s started; press Ctrl-C to stop\n", rec.ID)
	<-ctx.Done()

	if err := pipeline.Stop(); err != nil {
		logger.Error().Err(err).Msg("capture ended with store failure; partial recording kept")
		return fail(err)
	}

	// Seal only after all readers joined and the external recorder closed
	// the file.
	if video != "" && *pin != "" {
		if _, statErr := os.Stat(video); statErr == nil {
			loaded, err := st.GetRecording(context.Background(), rec.ID)
			if err != nil {
				return fail(err)
			}
			if _, err := recordings.Seal(context.Background(), st, loaded, *pin); err != nil {
				return fail(err)
			}
		}
	}

	fmt.Printf("recording %s stopped\n", rec.ID)
	return exitOK
}

// promptAssignments lists the controllers currently present and lets the
// operator pick. A controller plugged in while the prompt is open is
// announced, but it is not added to the selectable list.
func promptAssignments(ctx context.Context) ([]string, error) {
	paths, err := device.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	watcher, err := device.NewWatcher(device.InputDir)
	if err == nil {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go watcher.Run(watchCtx)
		defer func() { _ = watcher.Close() }()

		go func() {
			for change := range watcher.Changes() {
				if change.Op == device.Added {
					fmt.Printf("controller appeared: %s\n", change.Path)
				}
			}
		}()
	}

	if len(paths) == 0 {
		fmt.Println("no controllers present; plug one in and re-run")
		return nil, nil
	}
	fmt.Println("available controllers:")
	for i, p := range paths {
		fmt.Printf("  [%d] %s\n", i, p)
	}
	fmt.Print("select (comma-separated indices, empty for all): ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return paths, nil
	}

	var out []string
	for _, part := range splitList(line) {
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(paths) {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		out = append(out, paths[idx])
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
