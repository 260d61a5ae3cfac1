package lookup

import (
	"fmt"
	"slices"
)

// HeaderMode selects how a lookup table header is validated.
type HeaderMode int

const (
	// HeaderStrict requires dstport, protocol and tag to all be present.
	// Extra columns are ignored.
	HeaderStrict HeaderMode = iota
	// HeaderSubset only requires every observed column to be one of
	// dstport, protocol and tag. A header missing tag passes and its rows
	// carry an empty tag.
	HeaderSubset
)

// ParseHeaderMode converts "strict" or "subset" to a HeaderMode.
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch s {
	case "", "strict":
		return HeaderStrict, nil
	case "subset":
		return HeaderSubset, nil
	default:
		return HeaderStrict, fmt.Errorf("unsupported header mode: %s (use strict or subset)", s)
	}
}

func (m HeaderMode) String() string {
	if m == HeaderSubset {
		return "subset"
	}
	return "strict"
}

func (m HeaderMode) validate(header []string) error {
	switch m {
	case HeaderSubset:
		for _, col := range header {
			if !slices.Contains(requiredColumns, col) {
				return &HeaderError{Column: col, Err: ErrUnknownColumn}
			}
		}
	default:
		for _, col := range requiredColumns {
			if !slices.Contains(header, col) {
				return &HeaderError{Column: col, Err: ErrMissingColumn}
			}
		}
	}
	return nil
}
