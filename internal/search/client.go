package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Request 单次分页请求
type Request struct {
	Query      string
	Key        string
	EndpointID string
	Offset     int
	Nonce      int
}

// RawResponse 未解析的响应
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Success 传输层状态码是否为 2xx
func (r *RawResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Searcher 分页搜索能力
type Searcher interface {
	Search(ctx context.Context, req Request) (*RawResponse, error)
}

// ErrTimeout 请求超时
var ErrTimeout = errors.New("search request timed out")

// Client 基于 fasthttp 的 Custom Search 客户端
type Client struct {
	endpoint   string
	timeout    time.Duration
	userAgent  string
	httpClient *fasthttp.Client
}

// NewClient 创建搜索客户端
func NewClient(endpoint string, timeout time.Duration, userAgent string) *Client {
	return &Client{
		endpoint:  endpoint,
		timeout:   timeout,
		userAgent: userAgent,
		httpClient: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

// SetDial 替换拨号函数
func (c *Client) SetDial(dial fasthttp.DialFunc) {
	c.httpClient.Dial = dial
}

// BuildURL 构建请求地址，callback 参数保持接口期望的 JSONP 调用形式
func (c *Client) BuildURL(req Request) string {
	query := strings.ReplaceAll(req.Query, " ", "%20")
	return fmt.Sprintf("%s?num=10&q=%s&key=%s&cx=%s&start=%d&callback=google.search.cse.api%d&fileType=&exactTerms=",
		c.endpoint, query, req.Key, req.EndpointID, req.Offset, req.Nonce)
}

// Search 发送一次请求，超时返回 ErrTimeout
func (c *Client) Search(ctx context.Context, req Request) (*RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	httpReq.SetRequestURI(c.BuildURL(req))
	httpReq.Header.SetMethod(fasthttp.MethodGet)
	httpReq.Header.SetUserAgent(c.userAgent)
	httpReq.Header.Set("Accept", "application/json, text/javascript, */*")

	if err := c.httpClient.DoTimeout(httpReq, httpResp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("search request failed: %v", err)
	}

	// 响应对象会被回收，需要拷贝 body
	body := make([]byte, len(httpResp.Body()))
	copy(body, httpResp.Body())

	return &RawResponse{
		StatusCode: httpResp.StatusCode(),
		Body:       body,
	}, nil
}
