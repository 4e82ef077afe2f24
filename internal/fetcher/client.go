package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultClientTimeout = 10 * time.Second
	maxResponseBytes     = 4 << 20 // 4MB，防御异常大响应
)

// Client 对接上游新闻 API 的 HTTP 实现
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Fetcher = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// 上游统一响应包裹
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    []Candidate `json:"data"`
}

// FetchPage 拉取一页候选文章。任何失败都包装为 FetchError，不返回部分结果。
func (c *Client) FetchPage(ctx context.Context, page, pageSize int) ([]Candidate, error) {
	url := fmt.Sprintf("%s/api/news/latest?page=%d&pageSize=%d", c.baseURL, page, pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Page: page, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Page: page, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Page: page, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &FetchError{Page: page, Err: fmt.Errorf("read body: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &FetchError{Page: page, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if !env.Success {
		return nil, &FetchError{Page: page, Err: fmt.Errorf("upstream error: %s", env.Message)}
	}

	return env.Data, nil
}
