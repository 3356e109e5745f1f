package api

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gse-scraper/internal/search"
	"github.com/gse-scraper/pkg/logger"
)

type stubSearcher struct {
	calls int
}

func (s *stubSearcher) Search(ctx context.Context, req search.Request) (*search.RawResponse, error) {
	s.calls++
	body := `google.search.cse.api1({"queries":{"request":[{"totalResults":"2"}]},"items":[` +
		`{"title":"Login","link":"https://login.example.com/","displayLink":"login.example.com"},` +
		`{"title":"Mail","link":"https://mail.example.com/","displayLink":"mail.example.com"}]});`
	return &search.RawResponse{StatusCode: 200, Body: []byte(body)}, nil
}

func writeInputs(t *testing.T, modifiers string) string {
	t.Helper()
	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "gse_keys.txt"), []byte("cx1|key1\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "gse_search_modificators.txt"), []byte(modifiers), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return base
}

func TestGetDefaultOptions(t *testing.T) {
	options := GetDefaultOptions()

	if options.Domain != "" {
		t.Errorf("Expected empty domain, got %s", options.Domain)
	}

	if options.LedgerBackend != "file" {
		t.Errorf("Expected file ledger backend, got %s", options.LedgerBackend)
	}

	if options.Timeout != 30*time.Second {
		t.Errorf("Expected Timeout to be 30s, got %v", options.Timeout)
	}

	if options.Resolve {
		t.Error("Expected Resolve to be false")
	}
}

func TestRun_EmptyDomain(t *testing.T) {
	options := GetDefaultOptions()
	options.BasePath = t.TempDir()

	result, err := NewScraperAPI().Run(context.Background(), options)

	if err == nil {
		t.Error("Expected error for empty domain")
	}

	if result == nil {
		t.Error("Expected result even with error")
		return
	}

	if result.Error == "" {
		t.Error("Expected error message in result")
	}
}

func TestRun_InvalidExportFormat(t *testing.T) {
	options := GetDefaultOptions()
	options.BasePath = t.TempDir()
	options.Domain = "example.com"
	options.ExportFormat = "xml"

	if _, err := NewScraperAPI().Run(context.Background(), options); err == nil {
		t.Error("Expected error for unsupported export format")
	}
}

func TestRun(t *testing.T) {
	stub := &stubSearcher{}
	api := NewScraperAPI()
	api.SetSearcher(stub)

	options := GetDefaultOptions()
	options.BasePath = writeInputs(t, "login\n")
	options.Domain = "example.com"
	options.Interval = 0

	result, err := api.Run(context.Background(), options)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stub.calls != 1 {
		t.Errorf("Expected 1 search call, got %d", stub.calls)
	}
	if result.Status != "completed" {
		t.Errorf("Expected completed status, got %s", result.Status)
	}
	if len(result.Queries) != 1 || result.Queries[0].Items != 2 {
		t.Errorf("Unexpected queries: %+v", result.Queries)
	}
	if len(result.Subdomains) != 2 || result.Subdomains[0] != "login.example.com" {
		t.Errorf("Unexpected subdomains: %v", result.Subdomains)
	}
	if result.Usage != 1 {
		t.Errorf("Expected usage 1, got %d", result.Usage)
	}
}

func TestRun_NoModifiers(t *testing.T) {
	stub := &stubSearcher{}
	api := NewScraperAPI()
	api.SetSearcher(stub)

	options := GetDefaultOptions()
	options.BasePath = writeInputs(t, "")
	options.Domain = "example.com"

	result, err := api.Run(context.Background(), options)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Status != "no_modifiers" {
		t.Errorf("Expected no_modifiers status, got %s", result.Status)
	}
	if stub.calls != 0 {
		t.Errorf("Expected no search calls, got %d", stub.calls)
	}
}

func TestResult_JSON(t *testing.T) {
	result := Result{
		Domain: "example.com",
		Status: "completed",
		Queries: []QueryResult{
			{Query: "site:example.com%20login", Outcome: "done", Pages: 1, Items: 2, Usage: 1},
		},
		Subdomains:    []string{"login.example.com"},
		ExecutionTime: 5 * time.Second,
	}

	jsonData, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal JSON: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(jsonData, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if decoded["status"] != "completed" {
		t.Errorf("Expected status field, got %v", decoded["status"])
	}
	if _, ok := decoded["error"]; ok {
		t.Error("Expected error field to be omitted")
	}
}

func TestRun_KeepsCallerLogger(t *testing.T) {
	if err := logger.Init("error", ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	configured := logger.GetLogger()

	api := NewScraperAPI()
	api.SetSearcher(&stubSearcher{})

	options := GetDefaultOptions()
	options.BasePath = writeInputs(t, "")
	options.Domain = "example.com"

	if _, err := api.Run(context.Background(), options); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if logger.GetLogger() != configured {
		t.Error("Expected Run to keep the caller's logger")
	}
	if logger.GetLogger().GetLevel() != logrus.ErrorLevel {
		t.Errorf("Expected error level, got %s", logger.GetLogger().GetLevel())
	}

	options.Debug = true
	if _, err := api.Run(context.Background(), options); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if logger.GetLogger() != configured || logger.GetLogger().GetLevel() != logrus.DebugLevel {
		t.Error("Expected debug to raise the level of the existing logger")
	}
}
