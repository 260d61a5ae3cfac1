package flowlog

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ProtocolResolver maps a protocol number to its keyword.
type ProtocolResolver interface {
	Resolve(number string) string
}

// TagResolver maps a destination port and protocol keyword to a tag.
type TagResolver interface {
	Resolve(dstPort, protocol string) string
}

// maxLineSize bounds a single flow-log line. Longer lines are skipped.
const maxLineSize = 1024 * 1024

// Aggregator classifies flow-log records and counts them per combo and per tag.
type Aggregator struct {
	protocols ProtocolResolver
	tags      TagResolver
	log       logrus.FieldLogger
}

// NewAggregator creates an aggregator using the given resolvers.
func NewAggregator(protocols ProtocolResolver, tags TagResolver, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{protocols: protocols, tags: tags, log: log}
}

// Run opens the flow log at path and aggregates it. On failure no counts
// are returned.
func (a *Aggregator) Run(path string) (*Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow log: %w", err)
	}
	defer f.Close()

	counts, err := a.Aggregate(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow log %s: %w", path, err)
	}

	a.log.WithFields(logrus.Fields{
		"path":    path,
		"lines":   counts.Lines,
		"records": counts.Records(),
		"skipped": counts.Skipped,
	}).Debug("aggregated flow log")
	return counts, nil
}

// Aggregate reads flow-log lines from r until EOF. Lines that are too short
// or longer than maxLineSize are counted as skipped.
func (a *Aggregator) Aggregate(r io.Reader) (*Counts, error) {
	counts := NewCounts()

	br := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 64*1024)
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		counts.Lines++
		if tooLong {
			counts.Skipped++
			a.log.WithField("line", counts.Lines).Debug("skipping over-long flow-log line")
		} else if rec, ok := ParseLine(string(line)); ok {
			a.add(counts, rec)
		} else {
			counts.Skipped++
			a.log.WithField("line", counts.Lines).Debug("skipping short flow-log line")
		}
		line = line[:0]
		tooLong = false
	}
	return counts, nil
}

func (a *Aggregator) add(counts *Counts, rec Record) {
	keyword := a.protocols.Resolve(rec.Protocol)
	combo := ComboKey{Port: rec.DstPort, Protocol: keyword}
	tag := a.tags.Resolve(rec.DstPort, keyword)

	counts.Combos.Inc(combo)
	counts.Tags.Inc(tag)
}
