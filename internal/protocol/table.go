package protocol

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
	"github.com/sirupsen/logrus"
)

// Unknown is returned by Resolve for numbers missing from the table.
const Unknown = "unknown"

// DefaultFile is the IANA protocol-numbers export looked up when no path is configured.
const DefaultFile = "protocol-numbers-1.csv"

// SourceBuiltin is reported by Source when the fallback table is in use.
const SourceBuiltin = "builtin"

// Entry is a single protocol number to keyword mapping.
type Entry struct {
	Number  string
	Keyword string
}

// Table maps protocol numbers, as they appear in flow logs, to lowercase keywords.
type Table struct {
	keywords map[string]string
	source   string
}

// Fallback returns the minimal table used when no reference file can be read.
func Fallback() *Table {
	return &Table{
		keywords: map[string]string{
			numberKey(layers.IPProtocolTCP):    "tcp",
			numberKey(layers.IPProtocolUDP):    "udp",
			numberKey(layers.IPProtocolICMPv4): "icmp",
		},
		source: SourceBuiltin,
	}
}

// Load reads an IANA-style CSV with Decimal and Keyword columns. It never
// fails: any problem with the file is logged and the fallback table is
// returned instead.
func Load(path string, log logrus.FieldLogger) *Table {
	t, err := LoadFrom(path)
	if err != nil {
		log.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Warn("protocol reference unavailable, using builtin tcp/udp/icmp table")
		return Fallback()
	}
	log.WithFields(logrus.Fields{
		"path":      path,
		"protocols": t.Len(),
	}).Debug("loaded protocol reference")
	return t
}

// LoadFrom reads and parses the reference CSV at path.
func LoadFrom(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open protocol file: %w", err)
	}
	defer f.Close()

	keywords, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse protocol file %s: %w", path, err)
	}
	return &Table{keywords: keywords, source: path}, nil
}

func parse(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}

	decimalIdx, keywordIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case "Decimal":
			decimalIdx = i
		case "Keyword":
			keywordIdx = i
		}
	}
	if decimalIdx < 0 || keywordIdx < 0 {
		return nil, errors.New("missing Decimal or Keyword column")
	}

	keywords := make(map[string]string)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if decimalIdx >= len(row) || keywordIdx >= len(row) {
			continue
		}
		keyword := strings.ToLower(strings.TrimSpace(row[keywordIdx]))
		// Unassigned ranges and reserved numbers carry no keyword.
		if keyword == "" {
			continue
		}
		number, ok := parseNumber(strings.TrimSpace(row[decimalIdx]))
		if !ok {
			continue
		}
		keywords[numberKey(number)] = keyword
	}
	return keywords, nil
}

// Resolve returns the keyword for a protocol number, or Unknown.
func (t *Table) Resolve(number string) string {
	if kw, ok := t.keywords[number]; ok {
		return kw
	}
	return Unknown
}

// Len returns the number of known protocols.
func (t *Table) Len() int {
	return len(t.keywords)
}

// Source returns the file the table was read from, or SourceBuiltin.
func (t *Table) Source() string {
	return t.source
}

// Entries returns all mappings ordered by protocol number.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.keywords))
	for n, kw := range t.keywords {
		entries = append(entries, Entry{Number: n, Keyword: kw})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, _ := parseNumber(entries[i].Number)
		b, _ := parseNumber(entries[j].Number)
		return a < b
	})
	return entries
}

// parseNumber reads a decimal IP protocol number. Ranges such as "143-252"
// and values above 255 are rejected.
func parseNumber(s string) (layers.IPProtocol, bool) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	return layers.IPProtocol(n), true
}

// numberKey is the form a protocol number takes in flow logs.
func numberKey(p layers.IPProtocol) string {
	return strconv.Itoa(int(p))
}
