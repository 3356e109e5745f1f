package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector 单次运行的指标，nil 接收者上的方法不做任何事
type Collector struct {
	registry *prometheus.Registry

	pages   *prometheus.CounterVec
	items   prometheus.Counter
	queries *prometheus.CounterVec
	usage   prometheus.Gauge
	labels  prometheus.Gauge
}

// New 创建指标集合，使用独立的 registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gse_pages_total",
				Help: "Search pages requested, by classification",
			},
			[]string{"result"},
		),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gse_items_total",
			Help: "Result items written to the request log",
		}),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gse_queries_total",
				Help: "Queries processed, by outcome",
			},
			[]string{"outcome"},
		),
		usage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gse_key_usage",
			Help: "Daily usage count of the selected key at the end of the run",
		}),
		labels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gse_subdomains",
			Help: "Distinct subdomain labels after deduplication",
		}),
	}

	c.registry.MustRegister(c.pages, c.items, c.queries, c.usage, c.labels)
	return c
}

// Registry 返回底层 registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObservePage 记录一次分页请求
func (c *Collector) ObservePage(result string) {
	if c == nil {
		return
	}
	c.pages.WithLabelValues(result).Inc()
}

// ObserveItems 记录写入的结果条数
func (c *Collector) ObserveItems(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.items.Add(float64(n))
}

// ObserveQuery 记录一个查询的结局
func (c *Collector) ObserveQuery(outcome string) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(outcome).Inc()
}

// SetUsage 记录所选 key 的计数
func (c *Collector) SetUsage(n int) {
	if c == nil {
		return
	}
	c.usage.Set(float64(n))
}

// SetSubdomains 记录去重后的子域数量
func (c *Collector) SetSubdomains(n int) {
	if c == nil {
		return
	}
	c.labels.Set(float64(n))
}

// WriteTextfile 以 textfile collector 格式写出指标
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
