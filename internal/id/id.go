// Package id generates short unique identifiers for sync runs and events.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// runIDLength is the NanoID length used for run identifiers. Runs are
// short-lived and only need to be unique within a daemon's log history,
// so 12 characters is plenty.
const runIDLength = 12

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "run-V1StGXR8_Z5j").
//
// Returns an error if the system has insufficient entropy for secure
// random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New(runIDLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use only where failure should crash the program.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
