package protocol

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

const ianaSample = `Decimal,Keyword,Protocol,IPv6 Extension Header,Reference
0,HOPOPT,IPv6 Hop-by-Hop Option,Y,[RFC8200]
1,ICMP,Internet Control Message,,[RFC792]
6,TCP,Transmission Control,,"[RFC9293]"
17,UDP,User Datagram,,"[RFC768][Jon_Postel]"
58,IPv6-ICMP,ICMP for IPv6,,[RFC8200]
61,,any host internal protocol,,[Internet_Assigned_Numbers_Authority]
143-252,,Unassigned,,[Internet_Assigned_Numbers_Authority]
`

func testLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ReferenceFile(t *testing.T) {
	path := writeFile(t, "protocol-numbers-1.csv", ianaSample)
	var buf bytes.Buffer

	table := Load(path, testLogger(&buf))

	tests := []struct {
		number string
		want   string
	}{
		{"0", "hopopt"},
		{"1", "icmp"},
		{"6", "tcp"},
		{"17", "udp"},
		{"58", "ipv6-icmp"},
		{"61", Unknown},
		{"143-252", Unknown},
		{"255", Unknown},
	}
	for _, tt := range tests {
		if got := table.Resolve(tt.number); got != tt.want {
			t.Errorf("Resolve(%q): got %q, want %q", tt.number, got, tt.want)
		}
	}

	if table.Len() != 5 {
		t.Errorf("len: got %d, want 5", table.Len())
	}
	if table.Source() != path {
		t.Errorf("source: got %q, want %q", table.Source(), path)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	var buf bytes.Buffer
	table := Load(filepath.Join(t.TempDir(), "nope.csv"), testLogger(&buf))

	want := map[string]string{"6": "tcp", "17": "udp", "1": "icmp", "2": Unknown}
	for number, kw := range want {
		if got := table.Resolve(number); got != kw {
			t.Errorf("Resolve(%q): got %q, want %q", number, got, kw)
		}
	}
	if table.Source() != SourceBuiltin {
		t.Errorf("source: got %q, want %q", table.Source(), SourceBuiltin)
	}
	if !strings.Contains(buf.String(), "nope.csv") {
		t.Errorf("expected warning naming the path, got %q", buf.String())
	}
}

func TestLoad_MissingColumnsFallsBack(t *testing.T) {
	path := writeFile(t, "protocols.csv", "Number,Name\n6,TCP\n47,GRE\n")
	var buf bytes.Buffer

	table := Load(path, testLogger(&buf))

	if table.Source() != SourceBuiltin {
		t.Errorf("source: got %q, want builtin", table.Source())
	}
	if got := table.Resolve("47"); got != Unknown {
		t.Errorf("Resolve(47): got %q, want %q", got, Unknown)
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFrom(writeFile(t, "empty.csv", "")); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestLoadFrom_ColumnOrderAndBOM(t *testing.T) {
	path := writeFile(t, "p.csv", "\ufeffKeyword,Decimal\nGRE,47\n")

	table, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Resolve("47"); got != "gre" {
		t.Errorf("Resolve(47): got %q, want gre", got)
	}
}

func TestLoadFrom_NumbersAreIPProtocols(t *testing.T) {
	path := writeFile(t, "p.csv", "Decimal,Keyword\n006,TCP\n256,BOGUS\n143-252,RANGE\nabc,WORD\n47,GRE\n")

	table, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if table.Len() != 2 {
		t.Errorf("len: got %d, want 2", table.Len())
	}
	tests := []struct {
		number string
		want   string
	}{
		{"6", "tcp"},
		{"47", "gre"},
		{"256", Unknown},
		{"143-252", Unknown},
		{"abc", Unknown},
	}
	for _, tt := range tests {
		if got := table.Resolve(tt.number); got != tt.want {
			t.Errorf("Resolve(%q): got %q, want %q", tt.number, got, tt.want)
		}
	}
}

func TestEntries_SortedNumerically(t *testing.T) {
	entries := Fallback().Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{"1", "6", "17"}
	for i, n := range wantOrder {
		if entries[i].Number != n {
			t.Errorf("[%d] number: got %q, want %q", i, entries[i].Number, n)
		}
	}
}
