package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 配置结构
type Config struct {
	// 调试和日志配置
	DebugEnabled bool   `mapstructure:"debug_enabled"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`

	// 输入文件（相对 basePath）
	KeysFile      string `mapstructure:"keys_file"`
	ModifiersFile string `mapstructure:"modifiers_file"`

	// 配额账本
	LedgerBackend string `mapstructure:"ledger_backend"`
	LedgerFile    string `mapstructure:"ledger_file"`
	LedgerDB      string `mapstructure:"ledger_db"`

	// 输出文件（相对 basePath/domain）
	RequestsFile   string `mapstructure:"requests_file"`
	SubdomainsFile string `mapstructure:"subdomains_file"`
	ResolvedFile   string `mapstructure:"resolved_file"`

	// 搜索接口配置
	SearchEndpoint  string `mapstructure:"search_endpoint"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	RequestInterval int    `mapstructure:"request_interval"`
	UserAgent       string `mapstructure:"user_agent"`

	// 导出配置
	ExportFormat string `mapstructure:"export_format"`

	// 解析配置
	EnableResolve      bool     `mapstructure:"enable_resolve"`
	ResolveConcurrency int      `mapstructure:"resolve_concurrency"`
	ResolveTimeout     int      `mapstructure:"resolve_timeout"`
	Resolvers          []string `mapstructure:"resolvers"`

	// 指标输出
	MetricsFile string `mapstructure:"metrics_file"`
}

const (
	LedgerBackendFile   = "file"
	LedgerBackendSQLite = "sqlite"
)

// Load 从 YAML 文件加载配置，path 为空时按默认路径查找，显式指定的文件读取失败时返回错误
func Load(path string) (*Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回仅包含默认值的配置
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// loadConfig 加载配置
func loadConfig(path string) (*Config, error) {
	loadEnvFile()

	cfg := &Config{}
	setDefaults(cfg)
	loadFromEnv(cfg)
	if err := loadFromYAML(cfg, path); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile 加载.env文件
func loadEnvFile() {
	if err := godotenv.Load(); err != nil {
		// .env 不存在时使用默认配置
		_ = godotenv.Load("env.example")
	}
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	cfg.DebugEnabled = false
	cfg.LogLevel = "info"
	cfg.LogFile = ""

	cfg.KeysFile = "gse_keys.txt"
	cfg.ModifiersFile = "gse_search_modificators.txt"

	cfg.LedgerBackend = LedgerBackendFile
	cfg.LedgerFile = "gse_keys_counter.txt"
	cfg.LedgerDB = "gse_keys_counter.db"

	cfg.RequestsFile = "gse_requests.txt"
	cfg.SubdomainsFile = "gse_subdomains.txt"
	cfg.ResolvedFile = "gse_resolved.txt"

	cfg.SearchEndpoint = "https://customsearch.googleapis.com/customsearch/v1"
	cfg.RequestTimeout = 30
	cfg.RequestInterval = 1000
	cfg.UserAgent = "gse-scraper/1.0.0"

	cfg.ExportFormat = ""

	cfg.EnableResolve = false
	cfg.ResolveConcurrency = 20
	cfg.ResolveTimeout = 5
	cfg.Resolvers = []string{"8.8.8.8:53", "1.1.1.1:53"}

	cfg.MetricsFile = ""
}

// loadFromEnv 从环境变量加载配置
func loadFromEnv(cfg *Config) {
	if val := getEnvBool("DEBUG_ENABLED"); val != nil {
		cfg.DebugEnabled = *val
	}
	if val := getEnvString("LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := getEnvString("LOG_FILE"); val != "" {
		cfg.LogFile = val
	}

	if val := getEnvString("GSE_KEYS_FILE"); val != "" {
		cfg.KeysFile = val
	}
	if val := getEnvString("GSE_MODIFIERS_FILE"); val != "" {
		cfg.ModifiersFile = val
	}

	if val := getEnvString("GSE_LEDGER_BACKEND"); val != "" {
		cfg.LedgerBackend = val
	}
	if val := getEnvString("GSE_LEDGER_FILE"); val != "" {
		cfg.LedgerFile = val
	}
	if val := getEnvString("GSE_LEDGER_DB"); val != "" {
		cfg.LedgerDB = val
	}

	if val := getEnvString("GSE_SEARCH_ENDPOINT"); val != "" {
		cfg.SearchEndpoint = val
	}
	if val := getEnvInt("GSE_REQUEST_TIMEOUT"); val != nil {
		cfg.RequestTimeout = *val
	}
	if val := getEnvInt("GSE_REQUEST_INTERVAL"); val != nil {
		cfg.RequestInterval = *val
	}

	if val := getEnvString("GSE_EXPORT_FORMAT"); val != "" {
		cfg.ExportFormat = val
	}

	if val := getEnvBool("GSE_ENABLE_RESOLVE"); val != nil {
		cfg.EnableResolve = *val
	}
	if val := getEnvInt("GSE_RESOLVE_CONCURRENCY"); val != nil {
		cfg.ResolveConcurrency = *val
	}
	if val := getEnvInt("GSE_RESOLVE_TIMEOUT"); val != nil {
		cfg.ResolveTimeout = *val
	}
	if val := getEnvString("GSE_RESOLVERS"); val != "" {
		cfg.Resolvers = splitList(val)
	}

	if val := getEnvString("GSE_METRICS_FILE"); val != "" {
		cfg.MetricsFile = val
	}
}

// loadFromYAML 从YAML文件加载配置，存在时覆盖环境变量
func loadFromYAML(cfg *Config, path string) error {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("data/config")
	}

	if err := v.ReadInConfig(); err != nil {
		// 默认路径下没有配置文件时只用默认值和环境变量
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case LedgerBackendFile, LedgerBackendSQLite:
	default:
		return fmt.Errorf("unsupported ledger backend: %s", c.LedgerBackend)
	}

	switch c.ExportFormat {
	case "", "csv", "json", "xlsx":
	default:
		return fmt.Errorf("unsupported export format: %s", c.ExportFormat)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %d", c.RequestTimeout)
	}
	if c.RequestInterval < 0 {
		return fmt.Errorf("request interval must not be negative, got %d", c.RequestInterval)
	}
	if c.EnableResolve && len(c.Resolvers) == 0 {
		return fmt.Errorf("resolve enabled but no resolvers configured")
	}

	return nil
}

// Timeout 单次请求超时
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Interval 两次分页请求之间的间隔
func (c *Config) Interval() time.Duration {
	return time.Duration(c.RequestInterval) * time.Millisecond
}

// 辅助函数
func getEnvString(key string) string {
	return os.Getenv(key)
}

func getEnvBool(key string) *bool {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

func getEnvInt(key string) *int {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return nil
	}
	return &i
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
