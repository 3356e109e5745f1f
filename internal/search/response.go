package search

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedResponse 响应无法按接口结构解码
var ErrMalformedResponse = errors.New("malformed search response")

// Item 单条搜索结果
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
}

// Page 一页解析结果，TotalResults 为空表示响应中未给出
type Page struct {
	TotalResults string
	Items        []Item
}

// Total 解析结果总数，缺失或无法解析时返回 false
func (p *Page) Total() (int, bool) {
	if p.TotalResults == "" {
		return 0, false
	}
	n, err := strconv.Atoi(p.TotalResults)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type apiResponse struct {
	Queries struct {
		Request []struct {
			TotalResults string `json:"totalResults"`
		} `json:"request"`
	} `json:"queries"`
	SearchInformation struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
	Items []Item `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract 解析结果总数和条目，缺少 title/link/displayLink 任一字段的条目被丢弃
func Extract(body []byte) (*Page, error) {
	resp, err := decode(body)
	if err != nil {
		return nil, err
	}

	page := &Page{TotalResults: resp.SearchInformation.TotalResults}
	if len(resp.Queries.Request) > 0 && resp.Queries.Request[0].TotalResults != "" {
		page.TotalResults = resp.Queries.Request[0].TotalResults
	}

	for _, item := range resp.Items {
		if item.Title == "" || item.Link == "" || item.DisplayLink == "" {
			continue
		}
		page.Items = append(page.Items, item)
	}

	return page, nil
}

// ExtractErrorCode 返回接口错误码，与 HTTP 状态码无关
func ExtractErrorCode(body []byte) (int, bool) {
	resp, err := decode(body)
	if err != nil || resp.Error == nil || resp.Error.Code == 0 {
		return 0, false
	}
	return resp.Error.Code, true
}

func decode(body []byte) (*apiResponse, error) {
	payload := unwrapJSONP(body)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var resp apiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// unwrapJSONP 去掉 /*O_o*/ 前缀和 callback(...) 包装
func unwrapJSONP(body []byte) []byte {
	body = bytes.TrimSpace(body)
	if bytes.HasPrefix(body, []byte("/*")) {
		if end := bytes.Index(body, []byte("*/")); end >= 0 {
			body = bytes.TrimSpace(body[end+2:])
		}
	}
	if len(body) == 0 || body[0] == '{' {
		return body
	}

	start := bytes.IndexByte(body, '(')
	end := bytes.LastIndexByte(body, ')')
	if start < 0 || end <= start {
		return body
	}
	return bytes.TrimSpace(body[start+1 : end])
}
