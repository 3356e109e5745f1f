package api

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gse-scraper/internal/config"
	"github.com/gse-scraper/internal/runner"
	"github.com/gse-scraper/internal/search"
	"github.com/gse-scraper/internal/sink"
	"github.com/gse-scraper/pkg/logger"
)

// QueryResult 单个查询的结果
type QueryResult struct {
	Query   string `json:"query"`
	Outcome string `json:"outcome"`
	Pages   int    `json:"pages"`
	Items   int    `json:"items"`
	Usage   int    `json:"usage"`
	Error   string `json:"error,omitempty"`
}

// Options 配置选项
type Options struct {
	BasePath string `json:"base_path"` // 输入文件和账本所在目录（必需）
	Domain   string `json:"domain"`    // 目标域名（必需）

	LedgerBackend string        `json:"ledger_backend"` // file 或 sqlite
	ExportFormat  string        `json:"export_format"`  // csv/json/xlsx，空为不导出
	Resolve       bool          `json:"resolve"`        // 是否解析子域
	Timeout       time.Duration `json:"timeout"`        // 单次请求超时
	Interval      time.Duration `json:"interval"`       // 请求间隔

	Debug bool `json:"debug"`
}

// Result 执行结果
type Result struct {
	RunID         string        `json:"run_id"`
	Domain        string        `json:"domain"`
	Status        string        `json:"status"`
	EndpointID    string        `json:"endpoint_id,omitempty"`
	Usage         int           `json:"usage"`
	Queries       []QueryResult `json:"queries"`
	Subdomains    []string      `json:"subdomains"`
	Resolved      int           `json:"resolved"`
	ExecutionTime time.Duration `json:"execution_time"`
	Error         string        `json:"error,omitempty"`
}

// ScraperAPI 以库方式调用抓取
type ScraperAPI struct {
	searcher search.Searcher
}

// NewScraperAPI 创建新的API实例
func NewScraperAPI() *ScraperAPI {
	return &ScraperAPI{}
}

// SetSearcher 替换搜索实现
func (api *ScraperAPI) SetSearcher(s search.Searcher) {
	api.searcher = s
}

// GetDefaultOptions 获取默认配置
func GetDefaultOptions() Options {
	cfg := config.Default()
	return Options{
		LedgerBackend: cfg.LedgerBackend,
		Timeout:       cfg.Timeout(),
		Interval:      cfg.Interval(),
	}
}

// Run 执行一次抓取并返回结果
func (api *ScraperAPI) Run(ctx context.Context, options Options) (*Result, error) {
	startTime := time.Now()
	fail := func(err error) (*Result, error) {
		return &Result{
			Domain:        options.Domain,
			ExecutionTime: time.Since(startTime),
			Error:         err.Error(),
		}, err
	}

	if options.BasePath == "" {
		return fail(fmt.Errorf("base path is required"))
	}
	if options.Domain == "" {
		return fail(fmt.Errorf("target domain is required"))
	}

	cfg, err := api.buildConfig(options)
	if err != nil {
		return fail(err)
	}

	// 日志由调用方初始化，这里只在调试时提升级别
	if options.Debug {
		if logger.GetLogger() == nil {
			logger.Init("debug", "")
		} else {
			logger.SetLevel("debug")
		}
	}

	r := runner.New(cfg)
	if api.searcher != nil {
		r.SetSearcher(api.searcher)
	}

	report, err := r.Run(ctx, options.BasePath, options.Domain)
	if err != nil {
		return fail(err)
	}

	result := &Result{
		RunID:      report.RunID,
		Domain:     report.Domain,
		Status:     report.Status.String(),
		EndpointID: report.Credential.EndpointID,
		Usage:      report.Usage,
		Queries:    make([]QueryResult, 0, len(report.Queries)),
		Resolved:   report.Resolved,
	}
	for _, q := range report.Queries {
		qr := QueryResult{
			Query:   q.Query,
			Outcome: q.Outcome.String(),
			Pages:   q.Pages,
			Items:   q.Items,
			Usage:   q.Usage,
		}
		if q.Err != nil {
			qr.Error = q.Err.Error()
		}
		result.Queries = append(result.Queries, qr)
	}

	labels, err := sink.ReadLabels(filepath.Join(options.BasePath, options.Domain, cfg.SubdomainsFile))
	if err != nil {
		return fail(err)
	}
	result.Subdomains = labels
	result.ExecutionTime = time.Since(startTime)

	logger.Infof("Run completed for %s: %s, %d subdomains in %v",
		options.Domain, result.Status, len(result.Subdomains), result.ExecutionTime)

	return result, nil
}

func (api *ScraperAPI) buildConfig(options Options) (*config.Config, error) {
	cfg := config.Default()

	if options.LedgerBackend != "" {
		cfg.LedgerBackend = options.LedgerBackend
	}
	cfg.ExportFormat = options.ExportFormat
	cfg.EnableResolve = options.Resolve
	if options.Timeout > 0 {
		cfg.RequestTimeout = int(options.Timeout / time.Second)
		if cfg.RequestTimeout == 0 {
			cfg.RequestTimeout = 1
		}
	}
	if options.Interval >= 0 {
		cfg.RequestInterval = int(options.Interval / time.Millisecond)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
