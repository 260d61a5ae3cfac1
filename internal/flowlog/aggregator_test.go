package flowlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lu-zhengda/flowtag/internal/logging"
	"github.com/lu-zhengda/flowtag/internal/lookup"
	"github.com/lu-zhengda/flowtag/internal/protocol"
)

const sampleLog = `2 123456789012 eni-0a1b2c3d 10.0.1.201 198.51.100.2 49153 443 6 25 20000 1620140761 1620140821 ACCEPT OK
2 123456789012 eni-4d3c2b1a 192.168.1.100 203.0.113.101 49154 443 6 15 12000 1620140761 1620140821 REJECT OK
2 123456789012 eni-5e6f7g8h 192.168.1.101 198.51.100.3 49155 53 17 10 8000 1620140761 1620140821 ACCEPT OK
`

func newTestAggregator() *Aggregator {
	tags := lookup.New([]lookup.Entry{
		{DstPort: "443", Protocol: "tcp", Tag: "sv_P1"},
		{DstPort: "25", Protocol: "tcp", Tag: "sv_P2"},
	})
	return NewAggregator(protocol.Fallback(), tags, logging.Discard())
}

func TestParseLine(t *testing.T) {
	line := "2 123456789012 eni-0a1b2c3d 10.0.1.201 198.51.100.2 49153 443 6 25 20000 1620140761 1620140821 ACCEPT OK"

	rec, ok := ParseLine(line)
	if !ok {
		t.Fatal("expected line to parse")
	}

	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"version", rec.Version, "2"},
		{"interface", rec.InterfaceID, "eni-0a1b2c3d"},
		{"srcaddr", rec.SrcAddr, "10.0.1.201"},
		{"dstaddr", rec.DstAddr, "198.51.100.2"},
		{"srcport", rec.SrcPort, "49153"},
		{"dstport", rec.DstPort, "443"},
		{"protocol", rec.Protocol, "6"},
		{"bytes", rec.Bytes, "20000"},
		{"action", rec.Action, "ACCEPT"},
		{"status", rec.LogStatus, "OK"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.field, tt.got, tt.want)
		}
	}
}

func TestParseLine_Short(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"blank", "   \t  "},
		{"thirteen fields", "2 123456789012 eni-0a1b2c3d 10.0.1.201 198.51.100.2 49153 443 6 25 20000 1620140761 1620140821 ACCEPT"},
		{"garbage", "not a flow log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ParseLine(tt.line); ok {
				t.Errorf("expected %q to be rejected", tt.line)
			}
		})
	}
}

func TestParseLine_ExtraFieldsAndTabs(t *testing.T) {
	line := "2\t123\teni-1   10.0.0.1 10.0.0.2 1 8080 6 1 1 1 1 ACCEPT OK extra columns"
	rec, ok := ParseLine(line)
	if !ok {
		t.Fatal("expected line with extra fields to parse")
	}
	if rec.DstPort != "8080" || rec.Protocol != "6" {
		t.Errorf("got dstport=%q protocol=%q, want 8080/6", rec.DstPort, rec.Protocol)
	}
}

func TestAggregate(t *testing.T) {
	counts, err := newTestAggregator().Aggregate(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := counts.Tags.Get("sv_P1"); got != 2 {
		t.Errorf("sv_P1: got %d, want 2", got)
	}
	if got := counts.Tags.Get(lookup.Untagged); got != 1 {
		t.Errorf("Untagged: got %d, want 1", got)
	}
	if got := counts.Combos.Get(ComboKey{Port: "443", Protocol: "tcp"}); got != 2 {
		t.Errorf("443/tcp: got %d, want 2", got)
	}
	if got := counts.Combos.Get(ComboKey{Port: "53", Protocol: "udp"}); got != 1 {
		t.Errorf("53/udp: got %d, want 1", got)
	}

	wantTags := []string{"sv_P1", lookup.Untagged}
	gotTags := counts.Tags.Keys()
	if len(gotTags) != len(wantTags) {
		t.Fatalf("tags: got %v, want %v", gotTags, wantTags)
	}
	for i := range wantTags {
		if gotTags[i] != wantTags[i] {
			t.Errorf("tag[%d]: got %q, want %q", i, gotTags[i], wantTags[i])
		}
	}
}

func TestAggregate_SkipsShortLines(t *testing.T) {
	input := sampleLog +
		"\n" +
		"2 123456789012 eni-short 10.0.0.1\n" +
		"# comment line\n"

	counts, err := newTestAggregator().Aggregate(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts.Lines != 6 {
		t.Errorf("lines: got %d, want 6", counts.Lines)
	}
	if counts.Skipped != 3 {
		t.Errorf("skipped: got %d, want 3", counts.Skipped)
	}
	if counts.Records() != 3 {
		t.Errorf("records: got %d, want 3", counts.Records())
	}
	if counts.Tags.Total() != counts.Records() || counts.Combos.Total() != counts.Records() {
		t.Errorf("totals: tags=%d combos=%d, want %d",
			counts.Tags.Total(), counts.Combos.Total(), counts.Records())
	}
}

func TestAggregate_SkipsOverlongLine(t *testing.T) {
	input := sampleLog + strings.Repeat("x", 2<<20) + "\n" + sampleLog

	counts, err := newTestAggregator().Aggregate(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts.Lines != 7 {
		t.Errorf("lines: got %d, want 7", counts.Lines)
	}
	if counts.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", counts.Skipped)
	}
	if counts.Records() != 6 {
		t.Errorf("records: got %d, want 6", counts.Records())
	}
	if got := counts.Tags.Get("sv_P1"); got != 4 {
		t.Errorf("sv_P1: got %d, want 4", got)
	}
}

func TestAggregate_LastLineWithoutNewline(t *testing.T) {
	input := strings.TrimSuffix(sampleLog, "\n")

	counts, err := newTestAggregator().Aggregate(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Lines != 3 || counts.Records() != 3 {
		t.Errorf("lines=%d records=%d, want 3 and 3", counts.Lines, counts.Records())
	}
}

func TestAggregate_UnknownProtocol(t *testing.T) {
	line := "2 123456789012 eni-1 10.0.0.1 10.0.0.2 1000 500 47 1 1 1 1 ACCEPT OK\n"

	counts, err := newTestAggregator().Aggregate(strings.NewReader(line))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := counts.Combos.Get(ComboKey{Port: "500", Protocol: protocol.Unknown}); got != 1 {
		t.Errorf("500/unknown: got %d, want 1", got)
	}
	if got := counts.Tags.Get(lookup.Untagged); got != 1 {
		t.Errorf("Untagged: got %d, want 1", got)
	}
}

func TestAggregate_TotalsMatchValidLines(t *testing.T) {
	var b strings.Builder
	valid := 0
	ports := []string{"443", "25", "80", "53", "443"}
	protos := []string{"6", "6", "6", "17", "1"}
	for i := 0; i < 50; i++ {
		if i%7 == 0 {
			b.WriteString("truncated line\n")
			continue
		}
		p := i % len(ports)
		b.WriteString("2 1 eni-x 10.0.0.1 10.0.0.2 1234 " + ports[p] + " " + protos[p] + " 1 1 1 1 ACCEPT OK\n")
		valid++
	}

	counts, err := newTestAggregator().Aggregate(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts.Tags.Total() != valid {
		t.Errorf("tag total: got %d, want %d", counts.Tags.Total(), valid)
	}
	if counts.Combos.Total() != valid {
		t.Errorf("combo total: got %d, want %d", counts.Combos.Total(), valid)
	}
}

func TestRun_MissingFile(t *testing.T) {
	counts, err := newTestAggregator().Run(filepath.Join(t.TempDir(), "missing.txt"))
	if counts != nil {
		t.Errorf("expected nil counts, got %+v", counts)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestRun_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow_logs.txt")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}

	counts, err := newTestAggregator().Run(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Records() != 3 {
		t.Errorf("records: got %d, want 3", counts.Records())
	}
}

func TestCounter(t *testing.T) {
	c := NewCounter[string]()
	for _, k := range []string{"b", "a", "b", "c", "b"} {
		c.Inc(k)
	}

	if c.Len() != 3 {
		t.Errorf("len: got %d, want 3", c.Len())
	}
	if c.Total() != 5 {
		t.Errorf("total: got %d, want 5", c.Total())
	}
	if c.Get("b") != 3 || c.Get("z") != 0 {
		t.Errorf("get: b=%d z=%d, want 3 and 0", c.Get("b"), c.Get("z"))
	}

	keys := c.Keys()
	want := []string{"b", "a", "c"}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key[%d]: got %q, want %q", i, keys[i], want[i])
		}
	}

	keys[0] = "mutated"
	if c.Keys()[0] != "b" {
		t.Error("Keys should return a copy")
	}
}
