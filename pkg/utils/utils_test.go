package utils

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestReadLines(t *testing.T) {
	input := "login\n\n# comment\n  admin  \nlogin\n"

	lines, err := ReadLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadLines failed: %v", err)
	}

	want := []string{"login", "admin", "login"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestLoadLinesFromFileMissing(t *testing.T) {
	if _, err := LoadLinesFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"b", "a", "b", "c", "a"})
	if strings.Join(got, ",") != "b,a,c" {
		t.Errorf("Unexpected result: %v", got)
	}
}
