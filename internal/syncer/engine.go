package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/GaolZiny/newshub/internal/fetcher"
	"github.com/GaolZiny/newshub/internal/storage"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 5
	defaultWorkers  = 4
)

// ArticleStore 是同步引擎需要的最小存储能力。
// Insert 必须在并发写入下保证 link 唯一（冲突返回 storage.ErrDuplicateLink）。
type ArticleStore interface {
	LatestIngestedAt(ctx context.Context) (time.Time, error)
	FindByLink(ctx context.Context, link string) (*storage.Article, error)
	Insert(ctx context.Context, a *storage.Article) error
}

// Options 同步引擎的可调参数，零值走默认
type Options struct {
	PageSize int
	MaxPages int
	Workers  int
	Now      func() time.Time // 测试注入时钟
}

// Engine 负责一轮增量同步：读水位 → 分页拉取 → 查重 → 入库 → 汇总报告。
// 单条失败只记账不中断；调用方需保证同一时刻只有一轮在跑。
type Engine struct {
	fetcher  fetcher.Fetcher
	store    ArticleStore
	pageSize int
	maxPages int
	workers  int
	now      func() time.Time
}

func NewEngine(f fetcher.Fetcher, store ArticleStore, opts Options) *Engine {
	e := &Engine{
		fetcher:  f,
		store:    store,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		workers:  opts.Workers,
		now:      opts.Now,
	}
	if e.pageSize <= 0 {
		e.pageSize = defaultPageSize
	}
	if e.maxPages <= 0 {
		e.maxPages = defaultMaxPages
	}
	if e.workers <= 0 {
		e.workers = defaultWorkers
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// 单条候选的处理结果，聚合进报告时用
type outcome int

const (
	outcomeInserted outcome = iota
	outcomeSkipped
	outcomeFailed
)

type candidateResult struct {
	outcome outcome
	skew    bool
}

// Run 执行一轮同步并返回报告。
// OK 只在整轮拉取颗粒无收（且报错）或上下文被取消时为 false，
// 单条入库失败只累计 Failed，部分成功是常态。
func (e *Engine) Run(ctx context.Context) Report {
	start := e.now()
	report := Report{StartedAt: start}

	log.Println("sync: start run...")

	watermark, err := e.store.LatestIngestedAt(ctx)
	if err != nil {
		// 水位只是性能优化，读不到就从零开始，查重仍然兜底
		log.Printf("sync: read watermark failed, fall back to zero: %v", err)
		watermark = time.Time{}
	}

	candidates, failedPages, totalFailure := e.fetchPages(ctx)
	report.Fetched = len(candidates)
	report.Failed += failedPages

	if totalFailure {
		report.DurationMs = e.now().Sub(start).Milliseconds()
		report.OK = false
		report.Message = "sync failed: upstream unreachable, no pages fetched"
		log.Println("sync: " + report.Message)
		return report
	}

	cancelled := e.processCandidates(ctx, candidates, watermark, &report)
	if ctx.Err() != nil {
		cancelled = true
	}

	report.DurationMs = e.now().Sub(start).Milliseconds()
	report.OK = !cancelled
	report.summarize()
	if cancelled {
		report.Message = "sync cancelled: " + report.Message
	}
	log.Println("sync: " + report.Message)
	return report
}

// fetchPages 逐页拉取，直到空页、短页或达到页数上限。
// 某页失败只放弃后续页，已拉到的候选保留；totalFailure 表示一条都没拿到且确实报了错。
func (e *Engine) fetchPages(ctx context.Context) (candidates []fetcher.Candidate, failedPages int, totalFailure bool) {
	for page := 1; page <= e.maxPages; page++ {
		if ctx.Err() != nil {
			break
		}

		items, err := e.fetcher.FetchPage(ctx, page, e.pageSize)
		if err != nil {
			log.Printf("sync: fetch page %d error: %v", page, err)
			failedPages++
			totalFailure = len(candidates) == 0
			break
		}
		if len(items) == 0 {
			break
		}

		candidates = append(candidates, items...)
		if len(items) < e.pageSize {
			// 短页说明到底了，不用再多打一次空请求
			break
		}
	}
	return candidates, failedPages, totalFailure
}

// processCandidates 用有界并发逐条处理候选，结果在锁内聚合进报告。
// 返回是否因上下文取消而提前停止派发（在途任务会跑完）。
func (e *Engine) processCandidates(ctx context.Context, candidates []fetcher.Candidate, watermark time.Time, report *Report) bool {
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, e.workers)
		cancelled bool
	)

	for _, c := range candidates {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(c fetcher.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			res := e.processOne(ctx, c, watermark)

			mu.Lock()
			switch res.outcome {
			case outcomeInserted:
				report.Inserted++
			case outcomeSkipped:
				report.SkippedExisting++
			case outcomeFailed:
				report.Failed++
			}
			if res.skew {
				report.SkewWarnings++
			}
			mu.Unlock()
		}(c)
	}

	wg.Wait()
	return cancelled
}

// processOne 处理单条候选：先按 link 预查，再插入。
// 预查只是省一次无谓的写尝试，并发竞态下以插入时的唯一约束为准。
func (e *Engine) processOne(ctx context.Context, c fetcher.Candidate, watermark time.Time) candidateResult {
	existing, err := e.store.FindByLink(ctx, c.Link)
	if err == nil && existing != nil {
		return candidateResult{outcome: outcomeSkipped}
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("sync: lookup %s error: %v", c.Link, err)
		return candidateResult{outcome: outcomeFailed}
	}

	ingestedAt := e.now()
	a := newArticle(c, ingestedAt)

	if err := e.store.Insert(ctx, a); err != nil {
		if errors.Is(err, storage.ErrDuplicateLink) {
			// 另一个 worker 或上一轮抢先插入了同一条，正常跳过
			return candidateResult{outcome: outcomeSkipped}
		}
		log.Printf("sync: insert %s error: %v", c.Link, err)
		return candidateResult{outcome: outcomeFailed}
	}

	// 候选时间戳落后于水位、或本地时钟回拨，都只告警不丢数据
	skew := !IsNew(c, watermark) || ingestedAt.Before(watermark)
	return candidateResult{outcome: outcomeInserted, skew: skew}
}

// newArticle 把上游候选转换为入库记录
func newArticle(c fetcher.Candidate, ingestedAt time.Time) *storage.Article {
	var keywords []byte
	if len(c.Keywords) > 0 {
		keywords, _ = json.Marshal(c.Keywords)
	}

	return &storage.Article{
		ExternalID:  c.ExternalID,
		Title:       c.Title,
		Link:        c.Link,
		Summary:     c.Summary,
		Category:    c.Category,
		Source:      c.Source,
		Keywords:    datatypes.JSON(keywords),
		ImageURL:    c.ImageURL,
		PublishedAt: c.PublishedAt,
		IngestedAt:  ingestedAt,
	}
}
