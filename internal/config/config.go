// Package config holds environment-variable-driven defaults for
// operational knobs the CLI does not otherwise set explicitly: bundle
// alignment, the objcopy-equivalent tool path, and the timeout applied to
// running it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// EnvAlignment overrides the default bundle_alignment (§3) used when
	// the CLI does not pass -bundle-align.
	EnvAlignment = "OBUNDLE_ALIGNMENT"

	// EnvObjcopyPath overrides the default objcopy_path (§3) used when
	// the CLI does not pass -objcopy.
	EnvObjcopyPath = "OBUNDLE_OBJCOPY"

	// EnvExternalToolTimeout overrides the timeout applied to the
	// external section-injection tool invocation.
	EnvExternalToolTimeout = "OBUNDLE_TIMEOUT"

	// DefaultAlignment is the bundle payload alignment (in bytes) used
	// when no alignment is specified.
	DefaultAlignment = 4096

	// DefaultObjcopyPath is the default name used to locate the
	// objcopy-equivalent tool on PATH.
	DefaultObjcopyPath = "objcopy"

	// DefaultExternalToolTimeout bounds how long the synchronous
	// external-tool invocation (§4.5, §5) is allowed to run.
	DefaultExternalToolTimeout = 2 * time.Minute

	// minAlignment and maxAlignment bound the range GetAlignment accepts;
	// anything outside this range is almost certainly a typo rather than
	// an intentional layout choice.
	minAlignment = 1
	maxAlignment = 1 << 20
)

// GetAlignment returns the configured default bundle alignment from
// OBUNDLE_ALIGNMENT. If unset, invalid, not a power of two, or out of
// range, it returns DefaultAlignment and prints a warning to stderr.
func GetAlignment() uint64 {
	envValue := os.Getenv(EnvAlignment)
	if envValue == "" {
		return DefaultAlignment
	}

	n, err := strconv.ParseUint(envValue, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %d\n",
			EnvAlignment, envValue, DefaultAlignment)
		return DefaultAlignment
	}

	if n < minAlignment || n > maxAlignment {
		fmt.Fprintf(os.Stderr, "Warning: %s out of range (%d), using default %d\n",
			EnvAlignment, n, DefaultAlignment)
		return DefaultAlignment
	}

	if n&(n-1) != 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s must be a power of two (%d), using default %d\n",
			EnvAlignment, n, DefaultAlignment)
		return DefaultAlignment
	}

	return n
}

// GetObjcopyPath returns the configured default objcopy-equivalent tool
// path from OBUNDLE_OBJCOPY, or DefaultObjcopyPath if unset.
func GetObjcopyPath() string {
	if v := os.Getenv(EnvObjcopyPath); v != "" {
		return v
	}
	return DefaultObjcopyPath
}

// GetExternalToolTimeout returns the configured external-tool timeout
// from OBUNDLE_TIMEOUT. Accepts duration strings like "30s", "2m". If
// unset or invalid, returns DefaultExternalToolTimeout.
func GetExternalToolTimeout() time.Duration {
	envValue := os.Getenv(EnvExternalToolTimeout)
	if envValue == "" {
		return DefaultExternalToolTimeout
	}

	d, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvExternalToolTimeout, envValue, DefaultExternalToolTimeout)
		return DefaultExternalToolTimeout
	}

	if d <= 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s must be positive (%v), using default %v\n",
			EnvExternalToolTimeout, d, DefaultExternalToolTimeout)
		return DefaultExternalToolTimeout
	}

	return d
}
