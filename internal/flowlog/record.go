package flowlog

import (
	"fmt"
	"strings"
)

// MinFields is the number of columns in a version 2 flow-log record.
// Shorter lines are skipped.
const MinFields = 14

// Column positions in a flow-log line:
// version account-id interface-id srcaddr dstaddr srcport dstport protocol packets bytes start end action log-status
const (
	fieldVersion = iota
	fieldAccountID
	fieldInterfaceID
	fieldSrcAddr
	fieldDstAddr
	fieldSrcPort
	fieldDstPort
	fieldProtocol
	fieldPackets
	fieldBytes
	fieldStart
	fieldEnd
	fieldAction
	fieldLogStatus
)

// Record is one parsed flow-log line. Numeric columns are kept as they
// appear in the log; only DstPort and Protocol take part in classification.
type Record struct {
	Version     string
	AccountID   string
	InterfaceID string
	SrcAddr     string
	DstAddr     string
	SrcPort     string
	DstPort     string
	Protocol    string // IANA protocol number, e.g. "6"
	Packets     string
	Bytes       string
	Start       string
	End         string
	Action      string
	LogStatus   string
}

// String returns a short human-readable form of the record.
func (r Record) String() string {
	return fmt.Sprintf("%s:%s -> %s:%s proto %s (%s)",
		r.SrcAddr, r.SrcPort, r.DstAddr, r.DstPort, r.Protocol, r.Action)
}

// ParseLine splits a flow-log line on whitespace. It reports false for
// lines with fewer than MinFields columns.
func ParseLine(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < MinFields {
		return Record{}, false
	}

	return Record{
		Version:     fields[fieldVersion],
		AccountID:   fields[fieldAccountID],
		InterfaceID: fields[fieldInterfaceID],
		SrcAddr:     fields[fieldSrcAddr],
		DstAddr:     fields[fieldDstAddr],
		SrcPort:     fields[fieldSrcPort],
		DstPort:     fields[fieldDstPort],
		Protocol:    fields[fieldProtocol],
		Packets:     fields[fieldPackets],
		Bytes:       fields[fieldBytes],
		Start:       fields[fieldStart],
		End:         fields[fieldEnd],
		Action:      fields[fieldAction],
		LogStatus:   fields[fieldLogStatus],
	}, true
}
