package report

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiff_NoPrevious(t *testing.T) {
	current := []TagCount{{"sv_P2", 1}, {"sv_P1", 2}}

	changes := Diff(nil, current)

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	// Sorted by tag.
	if changes[0].Tag != "sv_P1" || changes[0].Type != ChangeAdded || changes[0].New != 2 {
		t.Errorf("change[0]: got %+v, want added sv_P1 2", changes[0])
	}
	if changes[1].Tag != "sv_P2" || changes[1].Type != ChangeAdded {
		t.Errorf("change[1]: got %+v, want added sv_P2", changes[1])
	}
}

func TestDiff_NoChanges(t *testing.T) {
	counts := []TagCount{{"sv_P1", 2}, {"Untagged", 1}}

	if changes := Diff(counts, counts); len(changes) != 0 {
		t.Fatalf("expected 0 changes, got %+v", changes)
	}
}

func TestDiff_MixedChanges(t *testing.T) {
	prev := []TagCount{{"sv_P1", 2}, {"email", 4}, {"Untagged", 1}}
	current := []TagCount{{"sv_P1", 5}, {"Untagged", 1}, {"dns", 3}}

	changes := Diff(prev, current)

	want := []Change{
		{Type: ChangeAdded, Tag: "dns", New: 3},
		{Type: ChangeRemoved, Tag: "email", Old: 4},
		{Type: ChangeChanged, Tag: "sv_P1", Old: 2, New: 5},
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %+v", len(want), changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change[%d]: got %+v, want %+v", i, changes[i], want[i])
		}
	}
	if changes[1].Delta() != -4 || changes[2].Delta() != 3 {
		t.Errorf("deltas: got %d and %d, want -4 and 3", changes[1].Delta(), changes[2].Delta())
	}
}

func TestReadTagCounts(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(sampleCounts(), dir, "ex")
	if err != nil {
		t.Fatal(err)
	}

	tags, err := ReadTagCounts(paths.Tags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []TagCount{{"sv_P1", 2}, {"Untagged", 1}}
	if len(tags) != len(want) {
		t.Fatalf("got %+v, want %+v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("[%d]: got %+v, want %+v", i, tags[i], want[i])
		}
	}
}

func TestReadTagCounts_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"wrong header", "Port,Protocol,Count\n443,tcp,1\n"},
		{"bad count", "Tag,Count\nsv_P1,two\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tags.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadTagCounts(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
