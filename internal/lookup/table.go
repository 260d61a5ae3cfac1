package lookup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Untagged is the tag reported for flows with no matching entry.
const Untagged = "Untagged"

// Required column names of a lookup table.
const (
	ColumnDstPort  = "dstport"
	ColumnProtocol = "protocol"
	ColumnTag      = "tag"
)

var requiredColumns = []string{ColumnDstPort, ColumnProtocol, ColumnTag}

var (
	// ErrNotCSV is returned when the lookup path lacks a .csv suffix.
	ErrNotCSV = errors.New("lookup table is not a CSV file")
	// ErrUnknownColumn is returned when the header has a column outside the required set.
	ErrUnknownColumn = errors.New("unexpected column")
	// ErrMissingColumn is returned in strict mode when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
)

// HeaderError describes a lookup table header that failed validation.
type HeaderError struct {
	Column string
	Err    error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%v %q", e.Err, e.Column)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}

// Key identifies a lookup entry.
type Key struct {
	DstPort  string
	Protocol string
}

// Entry is a single row of the lookup table.
type Entry struct {
	DstPort  string
	Protocol string
	Tag      string
}

// Table maps (destination port, protocol keyword) pairs to tags.
type Table struct {
	path  string
	tags  map[Key]string
	order []Key
}

// New builds a table from entries. Protocols are lowercased and later
// entries overwrite earlier ones with the same key.
func New(entries []Entry) *Table {
	t := &Table{tags: make(map[Key]string, len(entries))}
	for _, e := range entries {
		t.add(e)
	}
	return t
}

func (t *Table) add(e Entry) {
	key := Key{DstPort: e.DstPort, Protocol: strings.ToLower(e.Protocol)}
	if _, exists := t.tags[key]; !exists {
		t.order = append(t.order, key)
	}
	t.tags[key] = e.Tag
}

// Load reads the lookup table at path, validating its header with mode.
func Load(path string, mode HeaderMode) (*Table, error) {
	if !strings.HasSuffix(path, ".csv") {
		return nil, fmt.Errorf("%w: %s", ErrNotCSV, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lookup table: %w", err)
	}
	defer f.Close()

	t, err := parse(f, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to load lookup table %s: %w", path, err)
	}
	t.path = path
	return t, nil
}

func parse(r io.Reader, mode HeaderMode) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	if err := mode.validate(header); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	t := &Table{tags: make(map[Key]string)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		t.add(Entry{
			DstPort:  field(row, ColumnDstPort),
			Protocol: field(row, ColumnProtocol),
			Tag:      field(row, ColumnTag),
		})
	}
	return t, nil
}

// Resolve returns the tag for a destination port and protocol keyword,
// or Untagged when there is no entry.
func (t *Table) Resolve(dstPort, protocol string) string {
	if tag, ok := t.tags[Key{DstPort: dstPort, Protocol: protocol}]; ok {
		return tag
	}
	return Untagged
}

// Len returns the number of distinct keys.
func (t *Table) Len() int {
	return len(t.tags)
}

// Path returns the file the table was loaded from, if any.
func (t *Table) Path() string {
	return t.path
}

// Entries returns the table contents in order of first appearance.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, len(t.order))
	for i, k := range t.order {
		entries[i] = Entry{DstPort: k.DstPort, Protocol: k.Protocol, Tag: t.tags[k]}
	}
	return entries
}
