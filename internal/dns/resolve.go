package dns

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/moby/sys/atomicwriter"

	"github.com/gse-scraper/pkg/logger"
)

// Resolution 子域解析结果
type Resolution struct {
	Label string
	IPs   []string
}

// Alive 是否解析到地址
func (r Resolution) Alive() bool {
	return len(r.IPs) > 0
}

// ResolveAll 并发解析全部子域，结果顺序与输入一致
func (c *Client) ResolveAll(ctx context.Context, labels []string) []Resolution {
	results := make([]Resolution, len(labels))
	var wg sync.WaitGroup

	for i, label := range labels {
		wg.Add(1)
		go func(i int, label string) {
			defer wg.Done()

			results[i].Label = label
			ips, err := c.Resolve(ctx, label)
			if err != nil {
				logger.Debugf("Failed to resolve %s: %v", label, err)
				return
			}
			results[i].IPs = ips
		}(i, label)
	}

	wg.Wait()
	return results
}

// WriteResolved 整体重写解析结果文件，只写入解析到地址的子域
func WriteResolved(path string, results []Resolution) (int, error) {
	var buf strings.Builder
	alive := 0
	for _, r := range results {
		if !r.Alive() {
			continue
		}
		alive++
		buf.WriteString(r.Label)
		buf.WriteByte('|')
		buf.WriteString(strings.Join(r.IPs, ","))
		buf.WriteByte('\n')
	}

	if err := atomicwriter.WriteFile(path, []byte(buf.String()), 0644); err != nil {
		return 0, fmt.Errorf("failed to write resolved file: %w", err)
	}
	return alive, nil
}
