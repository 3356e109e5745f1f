package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/gse-scraper/internal/search"
	"github.com/gse-scraper/pkg/utils"
)

const separator = "|"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Sink 追加写请求日志和子域日志，单写者使用
type Sink struct {
	requestsPath   string
	subdomainsPath string
	requests       *os.File
	subdomains     *os.File
}

// Open 创建输出目录并以追加方式打开两个日志文件
func Open(dir, requestsFile, subdomainsFile string) (*Sink, error) {
	if err := utils.CreateDirectory(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &Sink{
		requestsPath:   filepath.Join(dir, requestsFile),
		subdomainsPath: filepath.Join(dir, subdomainsFile),
	}

	var err error
	if s.requests, err = openAppend(s.requestsPath); err != nil {
		return nil, err
	}
	if s.subdomains, err = openAppend(s.subdomainsPath); err != nil {
		s.requests.Close()
		return nil, err
	}

	return s, nil
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}

// RequestsPath 请求日志路径
func (s *Sink) RequestsPath() string {
	return s.requestsPath
}

// SubdomainsPath 子域日志路径
func (s *Sink) SubdomainsPath() string {
	return s.subdomainsPath
}

// AppendResult 追加一条请求记录和对应的 displayLink
func (s *Sink) AppendResult(query string, item search.Item) error {
	if s.requests == nil {
		return errors.New("sink is closed")
	}

	line := strings.Join([]string{
		query,
		clean(item.DisplayLink),
		clean(item.Link),
		clean(item.Title),
	}, separator)

	if _, err := s.requests.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append request log: %w", err)
	}
	if _, err := s.subdomains.WriteString(clean(item.DisplayLink) + "\n"); err != nil {
		return fmt.Errorf("failed to append subdomain log: %w", err)
	}
	return nil
}

func clean(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

// Close 关闭日志文件
func (s *Sink) Close() error {
	if s.requests == nil {
		return nil
	}

	err := errors.Join(s.requests.Close(), s.subdomains.Close())
	s.requests, s.subdomains = nil, nil
	return err
}

// FinalizeDedup 关闭写入并把子域日志重写为去重后的集合，返回条数
func (s *Sink) FinalizeDedup() (int, error) {
	if err := s.Close(); err != nil {
		return 0, err
	}
	return Dedup(s.subdomainsPath)
}

// Dedup 把文件内容折叠为去重集合后整体重写，不保留原有行序
func Dedup(path string) (int, error) {
	labels, err := ReadLabels(path)
	if err != nil {
		return 0, err
	}

	var buf strings.Builder
	for _, label := range labels {
		buf.WriteString(label)
		buf.WriteByte('\n')
	}

	if err := atomicwriter.WriteFile(path, []byte(buf.String()), 0644); err != nil {
		return 0, fmt.Errorf("failed to rewrite subdomains: %w", err)
	}
	return len(labels), nil
}

// ReadLabels 读取去重后的子域集合，文件不存在时为空
func ReadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open subdomains: %w", err)
	}
	defer file.Close()

	set := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if label := strings.TrimSpace(scanner.Text()); label != "" {
			set[label] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subdomains: %w", err)
	}

	labels := make([]string, 0, len(set))
	for label := range set {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}
