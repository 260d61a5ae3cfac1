package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lu-zhengda/flowtag/internal/flowlog"
)

// DefaultDir is where reports are written unless configured otherwise.
const DefaultDir = "counts"

// File name suffixes of the two reports.
const (
	TagSuffix   = "_tag_counts.csv"
	ComboSuffix = "_port_protocol_counts.csv"
)

// ErrNoCounts is returned by Write when there is nothing to report,
// typically because aggregation failed.
var ErrNoCounts = errors.New("no counts to report")

var (
	tagHeader   = []string{"Tag", "Count"}
	comboHeader = []string{"Port", "Protocol", "Count"}
)

// Paths are the files written by Write.
type Paths struct {
	Tags   string `json:"tags"`
	Combos string `json:"port_protocol"`
}

// BaseName derives a report base name from a flow-log path: the file name
// without its directory and without a trailing .txt.
func BaseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".txt")
}

// Write writes the tag and port/protocol reports for counts into dir,
// creating it as needed. Rows follow the counters' first-occurrence order.
// On error neither report is left behind.
func Write(counts *flowlog.Counts, dir, baseName string) (Paths, error) {
	if counts == nil || counts.Tags == nil || counts.Combos == nil {
		return Paths{}, ErrNoCounts
	}
	if baseName == "" {
		return Paths{}, errors.New("report base name is empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("failed to create report directory: %w", err)
	}

	paths := Paths{
		Tags:   filepath.Join(dir, baseName+TagSuffix),
		Combos: filepath.Join(dir, baseName+ComboSuffix),
	}

	tagRows := make([][]string, 0, counts.Tags.Len())
	for _, tag := range counts.Tags.Keys() {
		tagRows = append(tagRows, []string{tag, strconv.Itoa(counts.Tags.Get(tag))})
	}
	if err := writeCSV(paths.Tags, tagHeader, tagRows); err != nil {
		return Paths{}, err
	}

	comboRows := make([][]string, 0, counts.Combos.Len())
	for _, k := range counts.Combos.Keys() {
		comboRows = append(comboRows, []string{k.Port, k.Protocol, strconv.Itoa(counts.Combos.Get(k))})
	}
	if err := writeCSV(paths.Combos, comboHeader, comboRows); err != nil {
		// Reports are written as a pair.
		os.Remove(paths.Tags)
		return Paths{}, err
	}

	return paths, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close report %s: %w", path, err)
	}
	return nil
}
