package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gse-scraper/internal/config"
	"github.com/gse-scraper/internal/credential"
	"github.com/gse-scraper/internal/dns"
	"github.com/gse-scraper/internal/engine"
	"github.com/gse-scraper/internal/metrics"
	"github.com/gse-scraper/internal/quota"
	"github.com/gse-scraper/internal/search"
	"github.com/gse-scraper/internal/sink"
	"github.com/gse-scraper/pkg/logger"
	"github.com/gse-scraper/pkg/utils"
)

// Status 运行结束状态
type Status int

const (
	// StatusCompleted 所有查询修饰词均已处理（单个查询可能被放弃）
	StatusCompleted Status = iota
	// StatusNoModifiers 没有查询修饰词
	StatusNoModifiers
	// StatusExhausted 没有可用的 key
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusNoModifiers:
		return "no_modifiers"
	case StatusExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// QueryReport 单个查询的结果
type QueryReport struct {
	Modifier string
	Query    string
	Outcome  engine.State
	Pages    int
	Items    int
	Usage    int
	Err      error
}

// Report 一次运行的汇总
type Report struct {
	RunID      string
	Domain     string
	Status     Status
	Credential credential.Credential
	Usage      int
	Queries    []QueryReport
	Subdomains int
	Resolved   int
}

// Runner 按顺序执行一次完整抓取
type Runner struct {
	cfg      *config.Config
	searcher search.Searcher
	metrics  *metrics.Collector
	now      func() time.Time
}

// New 创建 Runner，默认使用 fasthttp 搜索客户端和本地时钟
func New(cfg *config.Config) *Runner {
	return &Runner{
		cfg:      cfg,
		searcher: search.NewClient(cfg.SearchEndpoint, cfg.Timeout(), cfg.UserAgent),
		now:      time.Now,
	}
}

// SetSearcher 替换搜索实现
func (r *Runner) SetSearcher(s search.Searcher) {
	r.searcher = s
}

// SetClock 替换时钟
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// SetMetrics 设置指标集合
func (r *Runner) SetMetrics(m *metrics.Collector) {
	r.metrics = m
}

// OpenLedgerStore 按配置打开账本存储
func OpenLedgerStore(cfg *config.Config, basePath string) (quota.Store, error) {
	switch cfg.LedgerBackend {
	case config.LedgerBackendSQLite:
		return quota.NewSQLiteStore(filepath.Join(basePath, cfg.LedgerDB))
	case config.LedgerBackendFile, "":
		return quota.NewFileStore(filepath.Join(basePath, cfg.LedgerFile)), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.LedgerBackend)
	}
}

// Run 执行一次运行。只有配置错误和必需输入的读写失败会返回 error
func (r *Runner) Run(ctx context.Context, basePath, domain string) (*Report, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Domain: domain,
	}
	log := logger.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"domain": domain,
	})

	creds, err := credential.Load(filepath.Join(basePath, r.cfg.KeysFile))
	if err != nil {
		return nil, err
	}

	modifiers, err := utils.LoadLinesFromFile(filepath.Join(basePath, r.cfg.ModifiersFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load query modifiers: %w", err)
	}

	store, err := OpenLedgerStore(r.cfg, basePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ledger, err := quota.LoadLedger(store)
	if err != nil {
		return nil, err
	}

	out, err := sink.Open(filepath.Join(basePath, domain), r.cfg.RequestsFile, r.cfg.SubdomainsFile)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	if n := ledger.ResetExpired(r.now()); n > 0 {
		log.Infof("Reset daily usage for %d keys", n)
	}

	if len(modifiers) == 0 {
		log.Warn("No search modifiers available, stopping")
		report.Status = StatusNoModifiers
		return report, nil
	}

	selection, err := quota.Select(creds.All(), ledger)
	if errors.Is(err, quota.ErrExhausted) {
		log.Warn("All keys are banned or have reached the daily quota, stopping")
		report.Status = StatusExhausted
		return report, nil
	}
	if err != nil {
		return nil, err
	}

	report.Credential = selection.Credential
	log = log.WithFields(logrus.Fields{
		"cx":  selection.Credential.EndpointID,
		"key": logger.MaskKey(selection.Credential.Key),
	})
	log.Infof("Selected key with usage %d/%d", selection.Usage, quota.DailyLimit)

	eng := engine.New(r.searcher, r.cfg.Interval(), r.metrics)
	usage := selection.Usage
	key := selection.Credential.Key

	for _, modifier := range modifiers {
		query := BuildQuery(domain, modifier)
		res := eng.Run(ctx, engine.Query{
			Text:       query,
			Credential: selection.Credential,
			Usage:      usage,
		}, out.AppendResult)
		usage = res.Usage

		report.Queries = append(report.Queries, QueryReport{
			Modifier: modifier,
			Query:    query,
			Outcome:  res.Outcome,
			Pages:    res.Pages,
			Items:    res.Items,
			Usage:    res.Usage,
			Err:      res.Err,
		})
		r.metrics.ObserveQuery(res.Outcome.String())

		now := r.now()
		switch res.Outcome {
		case engine.StateQuotaTripped:
			log.Warnf("Quota exceeded on query %q", query)
			ledger.TripQuota(key, now)
		case engine.StateBanned:
			log.Warnf("Key banned on query %q", query)
			ledger.Upsert(key, quota.Banned, now)
		case engine.StateDone:
			ledger.RecordUsage(key, usage, now)
		default:
			log.Warnf("Query %q failed: %v", query, res.Err)
			continue
		}

		if err := ledger.Save(store); err != nil {
			return nil, err
		}
	}

	report.Status = StatusCompleted
	report.Usage = usage
	r.metrics.SetUsage(usage)

	subdomains, err := out.FinalizeDedup()
	if err != nil {
		return nil, err
	}
	report.Subdomains = subdomains
	r.metrics.SetSubdomains(subdomains)

	r.postProcess(ctx, log, out, report)
	logSummary(log, report)
	return report, nil
}

// postProcess 导出、解析和指标输出，失败只记录日志
func (r *Runner) postProcess(ctx context.Context, log *logrus.Entry, out *sink.Sink, report *Report) {
	if r.cfg.ExportFormat != "" {
		if _, err := sink.NewExporter(r.cfg.ExportFormat, "").ExportFile(out.RequestsPath()); err != nil {
			log.Errorf("Export failed: %v", err)
		}
	}

	if r.cfg.EnableResolve {
		labels, err := sink.ReadLabels(out.SubdomainsPath())
		if err != nil {
			log.Errorf("Failed to read subdomains for resolution: %v", err)
		} else {
			client := dns.NewClient(time.Duration(r.cfg.ResolveTimeout)*time.Second, r.cfg.ResolveConcurrency, r.cfg.Resolvers)
			results := client.ResolveAll(ctx, labels)
			path := filepath.Join(filepath.Dir(out.SubdomainsPath()), r.cfg.ResolvedFile)
			if report.Resolved, err = dns.WriteResolved(path, results); err != nil {
				log.Errorf("Resolution failed: %v", err)
			} else {
				log.Infof("Resolved %d/%d subdomains", report.Resolved, len(labels))
			}
		}
	}

	if r.cfg.MetricsFile != "" {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
			log.Errorf("Failed to write metrics: %v", err)
		}
	}
}

// BuildQuery 构造 site 查询，空格按接口要求编码为 %20
func BuildQuery(domain, modifier string) string {
	return fmt.Sprintf("site:%s%%20%s", domain, modifier)
}

func logSummary(log *logrus.Entry, report *Report) {
	done := 0
	for _, q := range report.Queries {
		if q.Outcome == engine.StateDone {
			done++
		}
		log.WithFields(logrus.Fields{
			"outcome": q.Outcome.String(),
			"pages":   q.Pages,
			"items":   q.Items,
			"usage":   q.Usage,
		}).Debugf("Query %s", q.Query)
	}

	log.Infof("Run %s: %d/%d queries done, usage %d, %d subdomains",
		report.Status, done, len(report.Queries), report.Usage, report.Subdomains)
}
