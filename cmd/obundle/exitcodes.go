package main

import (
	"errors"
	"os"

	"github.com/obundle/obundle/internal/bundleerr"
)

// Exit codes let scripts distinguish failure modes without parsing
// stderr text.
const (
	ExitSuccess             = 0
	ExitGeneral             = 1
	ExitUsage               = 2
	ExitMissingBundle       = 3
	ExitExternalToolFailure = 4
)

// exitCodeFor maps a returned error to a process exit code.
func exitCodeFor(err error) int {
	var berr *bundleerr.Error
	if !errors.As(err, &berr) {
		return ExitGeneral
	}
	switch berr.Kind {
	case bundleerr.InvalidArgument, bundleerr.DuplicateBundle:
		return ExitUsage
	case bundleerr.MissingBundle:
		return ExitMissingBundle
	case bundleerr.ExternalToolFailure:
		return ExitExternalToolFailure
	default:
		return ExitGeneral
	}
}

func exitWithCode(code int) {
	os.Exit(code)
}
