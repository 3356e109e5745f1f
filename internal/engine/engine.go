package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/gse-scraper/internal/credential"
	"github.com/gse-scraper/internal/metrics"
	"github.com/gse-scraper/internal/quota"
	"github.com/gse-scraper/internal/search"
	"github.com/gse-scraper/pkg/logger"
)

const (
	pageSize    = 10
	firstOffset = 1
	// 结果数达到该值时只取到 lastOffset，接口不会返回更靠后的结果
	saturationTotal = 100
	lastOffset      = 91

	nonceMin = 999
	nonceMax = 6001

	errorCodeQuotaExceeded = 429
	errorCodeForbidden     = 403
)

// EmitFunc 接收一页中的每条结果
type EmitFunc func(query string, item search.Item) error

// Query 一次查询的输入
type Query struct {
	Text       string
	Credential credential.Credential
	Usage      int
}

// Result 一次查询的结果
type Result struct {
	// Outcome 为 StateDone 或放弃时所处的状态
	Outcome      State
	Usage        int
	Pages        int
	Items        int
	TotalResults string
	Err          error
}

// Completed 查询是否正常取完全部页
func (r Result) Completed() bool {
	return r.Outcome == StateDone
}

// Engine 分页引擎，同一时间只处理一个查询
type Engine struct {
	searcher search.Searcher
	limiter  *rate.Limiter
	rnd      *rand.Rand
	metrics  *metrics.Collector
}

// New 创建分页引擎，interval 为两次请求的最小间隔
func New(searcher search.Searcher, interval time.Duration, m *metrics.Collector) *Engine {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Engine{
		searcher: searcher,
		limiter:  rate.NewLimiter(limit, 1),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics:  m,
	}
}

// SetRand 替换随机源
func (e *Engine) SetRand(rnd *rand.Rand) {
	e.rnd = rnd
}

// ExtraOffsets 首页之后需要请求的偏移量。
// 总数不小于 100 时固定为 11..91；否则共 ceil(total/10) 页（含首页）。
func ExtraOffsets(total int, known bool) []int {
	if !known || total <= 0 {
		return nil
	}

	pages := (total + pageSize - 1) / pageSize
	if total >= saturationTotal {
		pages = (lastOffset-firstOffset)/pageSize + 1
	}

	offsets := make([]int, 0, pages-1)
	for i := 1; i < pages; i++ {
		offsets = append(offsets, firstOffset+i*pageSize)
	}
	return offsets
}

// Run 执行一次查询：取首页、分类、按总数分页，并把结果逐页交给 emit
func (e *Engine) Run(ctx context.Context, q Query, emit EmitFunc) Result {
	result := Result{Usage: q.Usage}
	state := StateStart

	step := func(ev Event) {
		next, err := Transition(state, ev)
		if err != nil {
			// 状态表覆盖了所有调用路径，出现即为编程错误
			panic(err)
		}
		state = next
	}

	resp, err := e.fetch(ctx, q, firstOffset)
	if err != nil {
		result.Err = err
		step(EventFailure)
		return e.finish(q, result, state, step)
	}
	step(EventResponse)

	page, ev, err := e.classify(resp)
	step(ev)
	if state.Abandoned() {
		result.Err = err
		e.applyTrip(&result, state)
		return e.finish(q, result, state, step)
	}

	result.TotalResults = page.TotalResults
	if err := e.accept(&result, q, page, emit); err != nil {
		result.Err = err
		step(EventFailure)
		return e.finish(q, result, state, step)
	}

	total, known := page.Total()
	for _, offset := range ExtraOffsets(total, known) {
		resp, err := e.fetch(ctx, q, offset)
		if err != nil {
			result.Err = err
			step(EventFailure)
			break
		}

		page, ev, err := e.classify(resp)
		step(ev)
		if state.Abandoned() {
			result.Err = err
			e.applyTrip(&result, state)
			break
		}

		if err := e.accept(&result, q, page, emit); err != nil {
			result.Err = err
			step(EventFailure)
			break
		}
	}

	return e.finish(q, result, state, step)
}

func (e *Engine) finish(q Query, result Result, state State, step func(Event)) Result {
	if state.Abandoned() {
		result.Outcome = state
		step(EventFinish)
		logger.Warnf("Query %q abandoned (%s) after %d pages: %v", q.Text, state, result.Pages, result.Err)
		return result
	}

	step(EventBoundReached)
	result.Outcome = StateDone
	logger.Debugf("Query %q done: %d pages, %d items", q.Text, result.Pages, result.Items)
	return result
}

// applyTrip 配额触发后本次运行内的计数至少为上限
func (e *Engine) applyTrip(result *Result, state State) {
	if state == StateQuotaTripped && result.Usage < quota.DailyLimit {
		result.Usage = quota.DailyLimit
	}
}

func (e *Engine) fetch(ctx context.Context, q Query, offset int) (*search.RawResponse, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := search.Request{
		Query:      q.Text,
		Key:        q.Credential.Key,
		EndpointID: q.Credential.EndpointID,
		Offset:     offset,
		Nonce:      nonceMin + e.rnd.Intn(nonceMax-nonceMin+1),
	}

	logger.Debugf("Sending request: q=%s cx=%s key=%s start=%d", req.Query, req.EndpointID, logger.MaskKey(req.Key), req.Offset)

	resp, err := e.searcher.Search(ctx, req)
	if err != nil {
		e.metrics.ObservePage(EventFailure.String())
		return nil, err
	}
	return resp, nil
}

// classify 按接口错误码、传输状态和解码结果对响应分类
func (e *Engine) classify(resp *search.RawResponse) (*search.Page, Event, error) {
	ev, page, err := classifyResponse(resp)
	e.metrics.ObservePage(ev.String())
	return page, ev, err
}

func classifyResponse(resp *search.RawResponse) (Event, *search.Page, error) {
	if code, ok := search.ExtractErrorCode(resp.Body); ok {
		switch code {
		case errorCodeQuotaExceeded:
			return EventQuotaExceeded, nil, fmt.Errorf("quota exceeded (code %d)", code)
		case errorCodeForbidden:
			return EventForbidden, nil, fmt.Errorf("key forbidden (code %d)", code)
		default:
			return EventFailure, nil, fmt.Errorf("search API error code %d (status %d)", code, resp.StatusCode)
		}
	}

	if !resp.Success() {
		return EventFailure, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	page, err := search.Extract(resp.Body)
	if err != nil {
		return EventFailure, nil, err
	}
	return EventPageOK, page, nil
}

func (e *Engine) accept(result *Result, q Query, page *search.Page, emit EmitFunc) error {
	result.Usage++
	result.Pages++

	for _, item := range page.Items {
		if err := emit(q.Text, item); err != nil {
			return fmt.Errorf("failed to store result: %w", err)
		}
		result.Items++
	}
	e.metrics.ObserveItems(len(page.Items))
	return nil
}

// IsMalformed 查询是否因响应无法解析而放弃
func (r Result) IsMalformed() bool {
	return errors.Is(r.Err, search.ErrMalformedResponse)
}
