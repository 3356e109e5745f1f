package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gse-scraper/pkg/logger"
	"github.com/gse-scraper/pkg/utils"
)

// RequestRecord 请求日志中的一行
type RequestRecord struct {
	Query       string `json:"query"`
	DisplayLink string `json:"display_link"`
	Link        string `json:"link"`
	Title       string `json:"title"`
}

var exportHeader = []string{"query", "display_link", "link", "title"}

// ReadRequestLog 读取请求日志，title 中的分隔符保留在 title 内
func ReadRequestLog(path string) ([]RequestRecord, error) {
	lines, err := utils.LoadLinesFromFile(path)
	if err != nil {
		return nil, err
	}

	records := make([]RequestRecord, 0, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, separator, 4)
		if len(parts) != 4 {
			logger.Debugf("Skipping malformed request log line: %s", line)
			continue
		}
		records = append(records, RequestRecord{
			Query:       parts[0],
			DisplayLink: parts[1],
			Link:        parts[2],
			Title:       parts[3],
		})
	}
	return records, nil
}

// Exporter 导出请求日志
type Exporter struct {
	format string
	output string
}

// NewExporter 创建导出器，output 为空时写到请求日志同目录
func NewExporter(format, output string) *Exporter {
	return &Exporter{
		format: format,
		output: output,
	}
}

// ExportFile 读取请求日志并按格式导出，返回输出路径
func (e *Exporter) ExportFile(requestsPath string) (string, error) {
	records, err := ReadRequestLog(requestsPath)
	if err != nil {
		return "", err
	}

	outputPath := e.output
	if outputPath == "" {
		base := strings.TrimSuffix(requestsPath, filepath.Ext(requestsPath))
		outputPath = base + "." + e.format
	}

	if err := e.Export(records, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Export 导出结果
func (e *Exporter) Export(records []RequestRecord, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	var err error
	switch e.format {
	case "csv":
		err = exportCSV(records, outputPath)
	case "json":
		err = exportJSON(records, outputPath)
	case "xlsx":
		err = exportXLSX(records, outputPath)
	default:
		return fmt.Errorf("unsupported format: %s", e.format)
	}
	if err != nil {
		return err
	}

	logger.Infof("Exported %d results to %s", len(records), outputPath)
	return nil
}

func exportCSV(records []RequestRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}
	for _, r := range records {
		if err := writer.Write([]string{r.Query, r.DisplayLink, r.Link, r.Title}); err != nil {
			return fmt.Errorf("failed to write CSV row: %v", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func exportJSON(records []RequestRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %v", err)
	}
	return nil
}

func exportXLSX(records []RequestRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write XLSX header: %v", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Query, r.DisplayLink, r.Link, r.Title}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write XLSX row: %v", err)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save XLSX file: %v", err)
	}
	return nil
}
