// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drjhoover/hsparc/internal/recordings"
	"github.com/drjhoover/hsparc/internal/security"
	"github.com/drjhoover/hsparc/internal/store"
	"github.com/drjhoover/hsparc/internal/studycrypto"
)

func runReview(args []string) int {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	recordingID := fs.String("recording", "", "recording id (required)")
	configPath := fs.String("config", "", "path to config file (YAML)")
	pin := fs.String("pin", "", "study PIN; required for a sealed video")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *recordingID == "" {
		fmt.Fprintln(os.Stderr, "review: --recording is required")
		return exitUsage
	}

	st, _, err := openStore(*configPath)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	rec, err := st.GetRecording(ctx, *recordingID)
	if err != nil {
		return fail(err)
	}

	sessions, err := st.ListSessions(ctx, rec.ID)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("recording %s (study %s), created %s\n", rec.ID, rec.StudyID, rec.CreatedUTC)
	if rec.Notes != "" {
		fmt.Printf("notes: %s\n", rec.Notes)
	}

	for _, sess := range sessions {
		streams, err := st.ListStreams(ctx, sess.ID)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("session %s %q: %d stream(s)\n", sess.ID, sess.Label, len(streams))
		for _, stream := range streams {
			n, err := st.CountEvents(ctx, stream.ID)
			if err != nil {
				return fail(err)
			}
			fmt.Printf("  stream %s (%s): %d event(s)\n", stream.ID, stream.Participant(), n)
		}
	}

	if rec.VideoPath == "" {
		return exitOK
	}

	if !studycrypto.IsSealed(rec.VideoPath) {
		fmt.Printf("video: %s (plaintext)\n", rec.VideoPath)
		return exitOK
	}

	if *pin == "" {
		fmt.Println("video is sealed; re-run with --pin to open it")
		return exitOK
	}

	if err := pinGuard.Check(rec.StudyID, security.ActionDecrypt); err != nil {
		return fail(err)
	}
	plainPath, err := recordings.Open(rec, *pin)
	pinGuard.Record(rec.StudyID, security.ActionDecrypt, err == nil)
	if err != nil {
		return fail(err)
	}
	// The temporary plaintext belongs to this process; remove it on exit.
	defer func() { _ = os.RemoveAll(filepath.Dir(plainPath)) }()

	fmt.Printf("video: %s (temporary plaintext, removed on exit)\n", plainPath)
	return exitOK
}

// loadSelection collects everything a recording's export or analysis needs.
func loadSelection(ctx context.Context, st *store.Store, recordingID string) (store.Recording, store.Study, []store.Session, []store.Stream, []store.Event, error) {
	rec, err := st.GetRecording(ctx, recordingID)
	if err != nil {
		return store.Recording{}, store.Study{}, nil, nil, nil, err
	}
	study, err := st.GetStudy(ctx, rec.StudyID)
	if err != nil {
		return store.Recording{}, store.Study{}, nil, nil, nil, err
	}
	sessions, err := st.ListSessions(ctx, rec.ID)
	if err != nil {
		return store.Recording{}, store.Study{}, nil, nil, nil, err
	}
	var streams []store.Stream
	var streamIDs []string
	for _, sess := range sessions {
		ss, err := st.ListStreams(ctx, sess.ID)
		if err != nil {
			return store.Recording{}, store.Study{}, nil, nil, nil, err
		}
		streams = append(streams, ss...)
		for _, s := range ss {
			streamIDs = append(streamIDs, s.ID)
		}
	}
	events, err := st.ScanEvents(ctx, streamIDs, nil)
	if err != nil {
		return store.Recording{}, store.Study{}, nil, nil, nil, err
	}
	return rec, study, sessions, streams, events, nil
}
