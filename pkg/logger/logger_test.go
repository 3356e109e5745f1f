package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"abcd", "****"},
		{"AIzaSyD-1234567890", "AIza**********7890"},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestInitWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "run.log")

	if err := Init("debug", logFile); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if GetLogger().GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", GetLogger().GetLevel())
	}

	Infof("hello %s", "file")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("Expected log file to contain message, got %q", string(data))
	}

	SetLevel("warn")
	if GetLogger().GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected warn level, got %s", GetLogger().GetLevel())
	}
}
