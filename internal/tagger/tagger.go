// Package tagger ties the protocol table, the active lookup table, the
// flow-log aggregator and the report writer together.
package tagger

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/lu-zhengda/flowtag/internal/flowlog"
	"github.com/lu-zhengda/flowtag/internal/lookup"
	"github.com/lu-zhengda/flowtag/internal/protocol"
	"github.com/lu-zhengda/flowtag/internal/report"
	"github.com/sirupsen/logrus"
)

// ErrNoLookup is returned by New when no lookup table is supplied.
var ErrNoLookup = errors.New("no lookup table loaded")

// Tagger counts flow logs against a protocol table and a replaceable
// lookup table.
type Tagger struct {
	protocols *protocol.Table
	lookup    atomic.Pointer[lookup.Table]
	log       logrus.FieldLogger
}

// New creates a Tagger. A nil lookup table is rejected rather than
// treated as "everything untagged".
func New(protocols *protocol.Table, table *lookup.Table, log logrus.FieldLogger) (*Tagger, error) {
	if table == nil {
		return nil, ErrNoLookup
	}
	if protocols == nil {
		protocols = protocol.Fallback()
	}
	t := &Tagger{protocols: protocols, log: log}
	t.lookup.Store(table)
	return t, nil
}

// Protocols returns the protocol table.
func (t *Tagger) Protocols() *protocol.Table {
	return t.protocols
}

// Lookup returns the active lookup table.
func (t *Tagger) Lookup() *lookup.Table {
	return t.lookup.Load()
}

// ReloadLookup loads the table at path and makes it the active one. If
// loading fails the current table stays in place. Runs already in
// progress keep the table they started with.
func (t *Tagger) ReloadLookup(path string, mode lookup.HeaderMode) error {
	table, err := lookup.Load(path, mode)
	if err != nil {
		return fmt.Errorf("failed to reload lookup table: %w", err)
	}

	prev := t.lookup.Swap(table)
	t.log.WithFields(logrus.Fields{
		"path":     path,
		"entries":  table.Len(),
		"previous": prev.Path(),
	}).Info("lookup table reloaded")
	return nil
}

// Count aggregates the flow log at path.
func (t *Tagger) Count(path string) (*flowlog.Counts, error) {
	agg := flowlog.NewAggregator(t.protocols, t.lookup.Load(), t.log)
	return agg.Run(path)
}

// CountAndReport aggregates the flow log at path and writes both reports
// into dir using baseName. Nothing is written if counting fails.
func (t *Tagger) CountAndReport(path, dir, baseName string) (*flowlog.Counts, report.Paths, error) {
	counts, err := t.Count(path)
	if err != nil {
		return nil, report.Paths{}, err
	}

	paths, err := report.Write(counts, dir, baseName)
	if err != nil {
		return counts, report.Paths{}, fmt.Errorf("failed to write reports: %w", err)
	}

	t.log.WithFields(logrus.Fields{
		"tags":          paths.Tags,
		"port_protocol": paths.Combos,
	}).Debug("reports written")
	return counts, paths, nil
}
