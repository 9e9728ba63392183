// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/drjhoover/hsparc/internal/security"
)

func runStudy(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hsparc study {create,list,delete} [flags]")
		return exitUsage
	}
	switch args[0] {
	case "create":
		return runStudyCreate(args[1:])
	case "list":
		return runStudyList(args[1:])
	case "delete":
		return runStudyDelete(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown study command %q\n", args[0])
		return exitUsage
	}
}

func runStudyCreate(args []string) int {
	fs := flag.NewFlagSet("study create", flag.ContinueOnError)
	label := fs.String("label", "", "study label (required, unique)")
	pin := fs.String("pin", "", "study PIN (required)")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *label == "" || *pin == "" {
		fmt.Fprintln(os.Stderr, "study create: --label and --pin are required")
		return exitUsage
	}

	st, _, err := openStore(*configPath)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = st.Close() }()

	study, err := st.CreateStudy(context.Background(), *label, *pin)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("created study %s (%s)\n", study.ID, study.Label)
	return exitOK
}

func runStudyList(args []string) int {
	fs := flag.NewFlagSet("study list", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	st, _, err := openStore(*configPath)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	studies, err := st.ListStudies(ctx)
	if err != nil {
		return fail(err)
	}
	for _, study := range studies {
		recs, err := st.ListRecordings(ctx, study.ID)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("%s  %-24s  created %s  locked %t  recordings %d\n",
			study.ID, study.Label, study.CreatedUTC.Format("2006-01-02"), study.IsLocked, len(recs))
	}
	return exitOK
}

func runStudyDelete(args []string) int {
	fs := flag.NewFlagSet("study delete", flag.ContinueOnError)
	label := fs.String("label", "", "study label (required)")
	pin := fs.String("pin", "", "study PIN (required)")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *label == "" || *pin == "" {
		fmt.Fprintln(os.Stderr, "study delete: --label and --pin are required")
		return exitUsage
	}

	st, _, err := openStore(*configPath)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	study, err := st.GetStudyByLabel(ctx, *label)
	if err != nil {
		return fail(err)
	}

	if err := pinGuard.Check(study.ID, security.ActionDelete); err != nil {
		return fail(err)
	}
	ok, err := st.VerifyStudyPin(ctx, study.ID, *pin)
	if err != nil {
		return fail(err)
	}
	pinGuard.Record(study.ID, security.ActionDelete, ok)
	if !ok {
		fmt.Fprintln(os.Stderr, "study delete: wrong PIN")
		return exitAuth
	}

	if err := st.DeleteStudy(ctx, study.ID); err != nil {
		return fail(err)
	}
	fmt.Printf("deleted study %s and all of its data\n", *label)
	return exitOK
}
