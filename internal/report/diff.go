package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// ChangeType describes how a tag count differs between two reports.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// TagCount is a single row of a tag report.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Change is a tag whose count differs between two reports.
type Change struct {
	Type ChangeType `json:"type"`
	Tag  string     `json:"tag"`
	Old  int        `json:"old"`
	New  int        `json:"new"`
}

// Delta returns New - Old.
func (c Change) Delta() int {
	return c.New - c.Old
}

// ReadTagCounts reads a report produced by Write.
func ReadTagCounts(path string) ([]TagCount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tag report: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(tagHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("tag report %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse tag report %s: %w", path, err)
	}
	if header[0] != tagHeader[0] || header[1] != tagHeader[1] {
		return nil, fmt.Errorf("tag report %s: unexpected header %v", path, header)
	}

	var out []TagCount
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag report %s: %w", path, err)
		}
		n, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("tag report %s: invalid count %q for tag %q", path, row[1], row[0])
		}
		out = append(out, TagCount{Tag: row[0], Count: n})
	}
	return out, nil
}

// Diff compares two tag reports and returns the tags that appeared,
// disappeared or changed count, sorted by tag.
func Diff(prev, current []TagCount) []Change {
	prevMap := make(map[string]int, len(prev))
	for _, tc := range prev {
		prevMap[tc.Tag] = tc.Count
	}
	currMap := make(map[string]int, len(current))
	for _, tc := range current {
		currMap[tc.Tag] = tc.Count
	}

	var changes []Change

	for tag, n := range currMap {
		old, existed := prevMap[tag]
		switch {
		case !existed:
			changes = append(changes, Change{Type: ChangeAdded, Tag: tag, New: n})
		case old != n:
			changes = append(changes, Change{Type: ChangeChanged, Tag: tag, Old: old, New: n})
		}
	}

	for tag, n := range prevMap {
		if _, exists := currMap[tag]; !exists {
			changes = append(changes, Change{Type: ChangeRemoved, Tag: tag, Old: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Tag < changes[j].Tag
	})

	return changes
}
