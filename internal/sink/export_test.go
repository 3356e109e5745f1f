package sink

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeRequestLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gse_requests.txt")
	content := "site:example.com%20login|login.example.com|https://login.example.com/|Login | Example\n" +
		"broken line\n" +
		"site:example.com%20admin|admin.example.com|https://admin.example.com/|Admin\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestReadRequestLog(t *testing.T) {
	records, err := ReadRequestLog(writeRequestLog(t))
	if err != nil {
		t.Fatalf("ReadRequestLog failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Title != "Login | Example" {
		t.Errorf("Expected title to keep separator, got %q", records[0].Title)
	}
}

func TestExportCSV(t *testing.T) {
	path, err := NewExporter("csv", "").ExportFile(writeRequestLog(t))
	if err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}
	if filepath.Ext(path) != ".csv" {
		t.Errorf("Expected .csv output, got %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "query" || rows[2][1] != "admin.example.com" {
		t.Errorf("Unexpected CSV rows: %v", rows)
	}
}

func TestExportJSON(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out", "results.json")
	if _, err := NewExporter("json", output).ExportFile(writeRequestLog(t)); err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var records []RequestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(records) != 2 || records[1].Link != "https://admin.example.com/" {
		t.Errorf("Unexpected JSON records: %+v", records)
	}
}

func TestExportXLSX(t *testing.T) {
	path, err := NewExporter("xlsx", "").ExportFile(writeRequestLog(t))
	if err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 || rows[1][1] != "login.example.com" {
		t.Errorf("Unexpected XLSX rows: %v", rows)
	}
}

func TestExportUnsupported(t *testing.T) {
	if err := NewExporter("xml", "").Export(nil, filepath.Join(t.TempDir(), "x.xml")); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
