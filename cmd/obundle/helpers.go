package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/obundle/obundle/internal/bundler"
	"github.com/obundle/obundle/internal/config"
)

// splitList splits a comma-separated flag value, trimming whitespace
// from each element. An empty string yields an empty slice.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// resolveHostIndex finds hostTarget's position in targets, or
// bundler.NoHostIndex if hostTarget is empty.
func resolveHostIndex(targets []string, hostTarget string) int {
	if hostTarget == "" {
		return bundler.NoHostIndex
	}
	for i, t := range targets {
		if t == hostTarget {
			return i
		}
	}
	return bundler.NoHostIndex
}

func printInfo(msg string) {
	fmt.Fprintln(os.Stdout, msg)
}

func printInfof(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}

// defaultConfig fills in the operational knobs (alignment, objcopy path)
// from internal/config when the CLI flags that would override them
// were left at their zero value.
func defaultConfig(alignment uint64, objcopyPath string) (uint64, string) {
	if alignment == 0 {
		alignment = config.GetAlignment()
	}
	if objcopyPath == "" {
		objcopyPath = config.GetObjcopyPath()
	}
	return alignment, objcopyPath
}
