package dns

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/semaphore"

	"github.com/gse-scraper/pkg/logger"
	"github.com/gse-scraper/pkg/utils"
)

// Client DNS 客户端
type Client struct {
	timeout   time.Duration
	semaphore *semaphore.Weighted
	resolvers []string
}

// NewClient 创建新的 DNS 客户端
func NewClient(timeout time.Duration, concurrency int, resolvers []string) *Client {
	if concurrency <= 0 {
		concurrency = 1
	}
	if len(resolvers) == 0 {
		resolvers = getDefaultResolvers()
	}

	return &Client{
		timeout:   timeout,
		semaphore: semaphore.NewWeighted(int64(concurrency)),
		resolvers: resolvers,
	}
}

// Resolve 解析 A 记录，按顺序尝试 DNS 服务器，第一个应答的服务器为准
func (c *Client) Resolve(ctx context.Context, domain string) ([]string, error) {
	if err := c.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %v", err)
	}
	defer c.semaphore.Release(1)

	var lastErr error
	for _, resolver := range c.resolvers {
		ips, err := c.resolveWithServer(ctx, domain, resolver)
		if err != nil {
			logger.Debugf("Failed to resolve %s with %s: %v", domain, resolver, err)
			lastErr = err
			continue
		}
		return utils.UniqueStrings(ips), nil
	}

	return nil, lastErr
}

// resolveWithServer 使用指定服务器解析
func (c *Client) resolveWithServer(ctx context.Context, domain, server string) ([]string, error) {
	client := &dns.Client{
		Timeout: c.timeout,
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("DNS query failed: %v", err)
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("DNS query failed: %s", dns.RcodeToString[resp.Rcode])
	}

	ips := make([]string, 0)
	for _, answer := range resp.Answer {
		if a, ok := answer.(*dns.A); ok {
			ips = append(ips, a.A.String())
		}
	}

	return ips, nil
}

// getDefaultResolvers 获取默认 DNS 服务器
func getDefaultResolvers() []string {
	return []string{
		"8.8.8.8:53", // Google DNS
		"1.1.1.1:53", // Cloudflare DNS
	}
}
