package ranking

import (
	"context"
	"sort"
	"time"

	"github.com/GaolZiny/newshub/internal/storage"
)

// 热度权重是领域常量，构建期固定，不随请求或配置变化
const (
	viewWeight  = 1
	likeWeight  = 5
	shareWeight = 10
)

const (
	DefaultLimit      = 10
	DefaultWindowDays = 7

	// 推荐取用户互动最多的前 3 个分类
	topCategoryCount = 3
)

// Store 是排名引擎需要的只读存储能力
type Store interface {
	RecentArticles(ctx context.Context, since time.Time) ([]storage.Article, error)
	InteractionsByUser(ctx context.Context, userID string) ([]storage.Interaction, error)
	RecentByCategories(ctx context.Context, categories []string, since time.Time, excludeIDs []uint, limit int) ([]storage.Article, error)
}

// Engine 计算热门榜和个性化推荐，纯读，相同输入产出确定的顺序
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewEngineWithClock 测试注入时钟
func NewEngineWithClock(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// Score 计算一篇文章的热度分。
// 计数全为 0 的部署里所有分数相同，排序按入库时间自然退化为纯时间序。
func Score(a storage.Article) float64 {
	return float64(a.Views)*viewWeight + float64(a.Likes)*likeWeight + float64(a.Shares)*shareWeight
}

// Hot 返回窗口期内按热度分倒序的前 limit 篇文章，同分按入库时间新者优先
func (e *Engine) Hot(ctx context.Context, limit, windowDays int) ([]storage.Article, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	// 拿全窗口再排序：截断候选集会把高互动的老文章挤出榜单
	since := e.now().AddDate(0, 0, -windowDays)
	articles, err := e.store.RecentArticles(ctx, since)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(articles, func(i, j int) bool {
		si, sj := Score(articles[i]), Score(articles[j])
		if si != sj {
			return si > sj
		}
		return articles[i].IngestedAt.After(articles[j].IngestedAt)
	})

	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// Recommend 基于用户的分类偏好推荐近 7 天的文章。
// 无互动历史时退回热门榜（冷启动策略）；已读文章按主键排除。
func (e *Engine) Recommend(ctx context.Context, userID string, limit int) ([]storage.Article, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	interactions, err := e.store.InteractionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return e.Hot(ctx, limit, DefaultWindowDays)
	}

	categories := topCategories(interactions, topCategoryCount)
	if len(categories) == 0 {
		// 互动记录全部缺分类，偏好无从谈起，按冷启动处理
		return e.Hot(ctx, limit, DefaultWindowDays)
	}
	excludeIDs := readArticleIDs(interactions)
	since := e.now().AddDate(0, 0, -DefaultWindowDays)

	return e.store.RecentByCategories(ctx, categories, since, excludeIDs, limit)
}

// topCategories 按互动次数取前 n 个分类，次数相同按分类名升序保证确定性
func topCategories(interactions []storage.Interaction, n int) []string {
	counts := make(map[string]int)
	for _, it := range interactions {
		if it.Category != "" {
			counts[it.Category]++
		}
	}

	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if counts[categories[i]] != counts[categories[j]] {
			return counts[categories[i]] > counts[categories[j]]
		}
		return categories[i] < categories[j]
	})

	if len(categories) > n {
		categories = categories[:n]
	}
	return categories
}

// readArticleIDs 去重后的已读文章主键集合
func readArticleIDs(interactions []storage.Interaction) []uint {
	seen := make(map[uint]struct{}, len(interactions))
	ids := make([]uint, 0, len(interactions))
	for _, it := range interactions {
		if _, ok := seen[it.ArticleID]; ok {
			continue
		}
		seen[it.ArticleID] = struct{}{}
		ids = append(ids, it.ArticleID)
	}
	return ids
}
