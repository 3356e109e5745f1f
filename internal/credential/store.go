package credential

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Credential 搜索接口凭据（搜索引擎 ID + API Key）
type Credential struct {
	EndpointID string
	Key        string
}

// ConfigError 凭据文件格式错误，整次运行中止
type ConfigError struct {
	Line int
	Text string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid key format at line %d: %q (expected endpointId|key)", e.Line, e.Text)
}

// Store 凭据列表，保持文件中的顺序
type Store struct {
	credentials []Credential
}

// Load 从文件加载凭据
func Load(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse 解析 endpointId|key 格式的凭据，每行一条
func Parse(r io.Reader) (*Store, error) {
	store := &Store{}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &ConfigError{Line: lineNum, Text: line}
		}

		store.credentials = append(store.credentials, Credential{
			EndpointID: parts[0],
			Key:        parts[1],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	return store, nil
}

// All 返回全部凭据（副本）
func (s *Store) All() []Credential {
	result := make([]Credential, len(s.credentials))
	copy(result, s.credentials)
	return result
}

// Lookup 按 key 查找凭据，重复时返回第一条
func (s *Store) Lookup(key string) (Credential, bool) {
	for _, c := range s.credentials {
		if c.Key == key {
			return c, true
		}
	}
	return Credential{}, false
}

// Len 凭据数量
func (s *Store) Len() int {
	return len(s.credentials)
}
