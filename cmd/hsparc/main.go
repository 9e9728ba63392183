// SPDX-License-Identifier: MIT

// Command hsparc records synchronized video plus multi-participant
// controller input and analyzes the resulting traces.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/drjhoover/hsparc/internal/analysis"
	"github.com/drjhoover/hsparc/internal/calibration"
	"github.com/drjhoover/hsparc/internal/config"
	"github.com/drjhoover/hsparc/internal/log"
	"github.com/drjhoover/hsparc/internal/security"
	"github.com/drjhoover/hsparc/internal/store"
	"github.com/drjhoover/hsparc/internal/studycrypto"
	"github.com/drjhoover/hsparc/internal/timeseries"
)

var (
	version   = "v1.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// Process exit codes.
const (
	exitOK       = 0
	exitUsage    = 2
	exitMissing  = 3
	exitAuth     = 4
	exitInternal = 5
)

// pinGuard caps PIN attempts for the process lifetime.
var pinGuard = security.NewAttemptGuard()

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsage
	}

	if args[0] == "--version" || args[0] == "version" {
		fmt.Printf("hsparc %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return exitOK
	}

	log.Configure(log.Config{
		Level:   os.Getenv("HSPARC_LOG_LEVEL"),
		Service: "hsparc",
		Version: version,
	})

	switch args[0] {
	case "record":
		return runRecord(args[1:])
	case "review":
		return runReview(args[1:])
	case "analyze":
		return runAnalyze(args[1:])
	case "export":
		return runExport(args[1:])
	case "study":
		return runStudy(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: hsparc <command> [flags]

commands:
  record   --study <label> [--devices <paths>] [--video <path>]
  review   --recording <id>
  analyze  --recording <id> [--traces <list>]
  export   --recording <id> --format csv --mode {change,timeseries[:rate]}
  study    {create,list,delete} ...
  version

environment:
  HSPARC_DATA_DIR        app home (default ~/.local/share/hsparc)
  HSPARC_LOG_LEVEL       zerolog level
  HSPARC_SAMPLE_RATE_HZ  default export rate
`)
}

// openStore loads config and opens the backing store.
func openStore(configPath string) (*store.Store, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, config.Config{}, err
	}
	return st, cfg, nil
}

// exitCodeFor maps typed errors onto the CLI exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, analysis.ErrInsufficientData):
		return exitMissing
	case errors.Is(err, studycrypto.ErrBadPinOrTampered),
		errors.Is(err, security.ErrTooManyAttempts):
		return exitAuth
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, store.ErrDuplicateLabel),
		errors.Is(err, timeseries.ErrInvalidRate),
		errors.Is(err, calibration.ErrInvalidExtent):
		return exitUsage
	default:
		return exitInternal
	}
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "hsparc: %v\n", err)
	return exitCodeFor(err)
}
