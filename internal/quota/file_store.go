package quota

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"

	"github.com/gse-scraper/pkg/logger"
)

const fieldSeparator = "|"

// FileStore 以 key|usage|lastUsedAt 行格式保存账本
type FileStore struct {
	path string
}

// NewFileStore 创建文件账本
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path 账本文件路径
func (s *FileStore) Path() string {
	return s.path
}

// Load 读取账本，文件不存在时返回空列表
func (s *FileStore) Load() ([]Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer file.Close()

	return ParseRecords(file)
}

// Save 原子地整体覆盖账本文件
func (s *FileStore) Save(records []Record) error {
	if err := atomicwriter.WriteFile(s.path, EncodeRecords(records), 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}

// Close 文件账本无需释放资源
func (s *FileStore) Close() error {
	return nil
}

// ParseRecords 解析账本行，无法解析的行记录警告后跳过
func ParseRecords(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		record, err := parseRecord(line)
		if err != nil {
			logger.Warnf("Skipping ledger line %d: %v", lineNum, err)
			continue
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return records, nil
}

func parseRecord(line string) (Record, error) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return Record{}, fmt.Errorf("expected key|usage|timestamp, got %q", line)
	}

	usage, err := ParseUsage(parts[1])
	if err != nil {
		return Record{}, err
	}

	// 缺少时间戳的旧记录视为从未使用
	var lastUsed time.Time
	if len(parts) == 3 {
		lastUsed = parseLastUsed(parts[0], parts[2])
	}

	return Record{Key: parts[0], Usage: usage, LastUsedAt: lastUsed}, nil
}

// parseLastUsed 时间戳无法解析时保留记录，按从未使用处理
func parseLastUsed(key, s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		logger.Warnf("Ledger record %s: %v, treating as never used", logger.MaskKey(key), err)
		return time.Time{}
	}
	return t
}

// EncodeRecords 按行编码记录
func EncodeRecords(records []Record) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		buf.WriteString(r.Key)
		buf.WriteString(fieldSeparator)
		buf.WriteString(r.Usage.String())
		buf.WriteString(fieldSeparator)
		buf.WriteString(FormatTimestamp(r.LastUsedAt))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
