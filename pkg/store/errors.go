package store

import "errors"

// Sentinel errors returned by the Config Store (spec §4.1, §7). Callers use
// errors.Is against these, never string matching.
var (
	// ErrVersionExists is returned by CreateVersion on a duplicate
	// (agent_id, version) pair.
	ErrVersionExists = errors.New("store: version already exists")

	// ErrVersionNotFound is returned when a specific (agent_id, version)
	// pair has no row.
	ErrVersionNotFound = errors.New("store: version not found")

	// ErrNoActiveVersion is returned by GetActive when an agent has no
	// active version (never activated, or all versions deprecated).
	ErrNoActiveVersion = errors.New("store: no active version")
)
