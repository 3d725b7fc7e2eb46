package models

import "fmt"

// DuplicateStrategy selects what happens when an upload's content hash
// already exists among stored metadata records.
type DuplicateStrategy string

const (
	// DuplicateReject refuses the upload and reports the existing record.
	DuplicateReject DuplicateStrategy = "reject"
	// DuplicateUpdate overwrites the existing record's name, path and bytes.
	DuplicateUpdate DuplicateStrategy = "update"
	// DuplicateIgnore creates an independent record despite the collision.
	DuplicateIgnore DuplicateStrategy = "ignore"
)

// ParseDuplicateStrategy maps the raw query value onto a strategy. An empty
// value selects the reject default; anything unrecognized is an error rather
// than a silent fallthrough.
func ParseDuplicateStrategy(raw string) (DuplicateStrategy, error) {
	switch DuplicateStrategy(raw) {
	case "":
		return DuplicateReject, nil
	case DuplicateReject, DuplicateUpdate, DuplicateIgnore:
		return DuplicateStrategy(raw), nil
	default:
		return "", fmt.Errorf("unrecognized duplicate_strategy %q (expected reject, update or ignore)", raw)
	}
}

// ProcessStrategy selects what happens when a record that already has an
// extracted Receipt is processed again.
type ProcessStrategy string

const (
	// ProcessReturnExisting returns the stored Receipt without re-extracting.
	ProcessReturnExisting ProcessStrategy = "return_existing"
	// ProcessReprocess deletes the stored Receipt and extracts afresh.
	ProcessReprocess ProcessStrategy = "reprocess"
)

// NormalizeProcessStrategy applies the return_existing default. Unrecognized
// values are kept as-is: they only matter once an existing Receipt is found,
// at which point they surface as a conflict.
func NormalizeProcessStrategy(raw string) ProcessStrategy {
	if raw == "" {
		return ProcessReturnExisting
	}
	return ProcessStrategy(raw)
}
