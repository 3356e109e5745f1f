package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gse-scraper/internal/config"
	"github.com/gse-scraper/internal/metrics"
	"github.com/gse-scraper/internal/quota"
	"github.com/gse-scraper/internal/runner"
	"github.com/gse-scraper/pkg/logger"
)

const version = "1.0.0"

var (
	// 命令行参数
	configPath   string
	exportFormat string
	resolve      bool
	metricsFile  string
	debug        bool
)

// 创建根命令
var rootCmd = &cobra.Command{
	Use:   "gse-scraper <basePath> <domain>",
	Short: "Collect subdomains of a domain through Google Custom Search",
	Long: `gse-scraper queries Google Custom Search with site: queries built from a
list of search modifiers, rotates API keys under a persisted daily quota ledger,
and collects every discovered subdomain into <basePath>/<domain>.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runScraper(args[0], args[1])
	},
}

// 创建版本命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gse-scraper v%s\n", version)
	},
}

// 创建账本命令
var ledgerCmd = &cobra.Command{
	Use:   "ledger <basePath>",
	Short: "Show the quota ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return showLedger(args[0])
	},
}

// loadConfig 加载配置并应用命令行参数
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if exportFormat != "" {
		cfg.ExportFormat = exportFormat
	}
	if resolve {
		cfg.EnableResolve = true
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
	if debug {
		cfg.DebugEnabled = true
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runScraper 执行一次抓取
func runScraper(basePath, domain string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(cfg)
	if cfg.MetricsFile != "" {
		r.SetMetrics(metrics.New())
	}

	logger.Infof("Starting gse-scraper for %s", domain)
	report, err := r.Run(ctx, basePath, domain)
	if err != nil {
		return err
	}

	switch report.Status {
	case runner.StatusNoModifiers:
		fmt.Println("No search modifiers available. Stopping execution.")
	case runner.StatusExhausted:
		fmt.Println("All keys are banned or have been used 100 times today. Stopping execution.")
	default:
		fmt.Printf("Run %s finished: %d queries, %d subdomains\n", report.RunID, len(report.Queries), report.Subdomains)
	}
	return nil
}

// showLedger 打印账本中每个 key 的状态和当日剩余次数
func showLedger(basePath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := runner.OpenLedgerStore(cfg, basePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ledger, err := quota.LoadLedger(store)
	if err != nil {
		return err
	}
	ledger.ResetExpired(time.Now())

	if ledger.Len() == 0 {
		fmt.Println("Ledger is empty")
		return nil
	}

	fmt.Printf("%-24s %-8s %-9s %s\n", "KEY", "USAGE", "REMAINING", "LAST USED")
	for _, r := range ledger.Records() {
		lastUsed := "-"
		if !r.LastUsedAt.IsZero() {
			lastUsed = r.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-24s %-8s %-9d %s\n", logger.MaskKey(r.Key), r.Usage, r.Usage.Remaining(), lastUsed)
	}
	return nil
}

func init() {
	// 加载环境变量
	loadEnvironment()

	// 初始化日志，配置加载后按配置重新初始化
	logLevel := "info"
	if os.Getenv("DEBUG_ENABLED") == "true" {
		logLevel = "debug"
	} else if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
		logLevel = logLevelEnv
	}
	logger.Init(logLevel, "")

	rootCmd.AddCommand(versionCmd, ledgerCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&exportFormat, "export", "o", "", "Export request log (csv/json/xlsx)")
	rootCmd.Flags().BoolVarP(&resolve, "resolve", "r", false, "Resolve discovered subdomains")
	rootCmd.Flags().StringVar(&metricsFile, "metrics", "", "Write Prometheus textfile metrics to this path")
}

// loadEnvironment 加载环境变量
func loadEnvironment() {
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("env.example")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
