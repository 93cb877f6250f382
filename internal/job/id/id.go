// Package id provides unique identifier generation for meditation jobs.
package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix starts every generated job ID.
const Prefix = "med-"

// Generate creates a new unique job ID.
// Format: med-<unix seconds>-<first uuid segment>
// Example: med-1701432000-a1b2c3d4
func Generate() string {
	segment, _, _ := strings.Cut(uuid.NewString(), "-")
	return fmt.Sprintf("%s%d-%s", Prefix, time.Now().Unix(), segment)
}

// Valid reports whether s looks like an ID produced by Generate.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return false
	}
	ts, segment, ok := strings.Cut(rest, "-")
	if !ok || ts == "" || len(segment) != 8 {
		return false
	}
	for _, r := range ts {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, r := range segment {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
