package fetcher

import (
	"context"
	"fmt"
	"time"
)

// Candidate 是上游接口返回的一条候选新闻，尚未确认是否为新数据
type Candidate struct {
	ExternalID  int64     `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary"`
	Category    string    `json:"category"`
	Keywords    []string  `json:"keywords"`
	Source      string    `json:"source"`
	ImageURL    string    `json:"image_url"`
	PublishedAt time.Time `json:"pub_date"`
	CreatedAt   time.Time `json:"created_at"` // 上游入库时间，增量水位过滤用
}

// Fetcher 抽象上游数据源：按页拉取候选文章。
// 实现必须自带超时，不允许把部分结果当成功返回。
type Fetcher interface {
	FetchPage(ctx context.Context, page, pageSize int) ([]Candidate, error)
}

// FetchError 表示某一页拉取失败（网络不可达、响应格式异常或超时）。
// 对进程非致命：当轮记账后等下一个调度周期重试。
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
