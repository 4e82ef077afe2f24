package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Article 表示一条已入库的新闻记录。
// Link 带唯一索引，是全局去重键；IngestedAt 在入库时由同步引擎写入，之后不再变更。
type Article struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ExternalID int64  `gorm:"index" json:"externalId"` // 上游分配的稳定 ID，本系统不重新分配
	Title      string `gorm:"size:512" json:"title"`
	Link       string `gorm:"size:1024;uniqueIndex" json:"link"`
	Summary    string `gorm:"size:2048" json:"summary"`
	Category   string `gorm:"size:64;index" json:"category"`
	Source     string `gorm:"size:128;index" json:"source"`
	// 关键词以 JSON 数组存储，搜索时按文本匹配
	Keywords datatypes.JSON `gorm:"type:jsonb" json:"keywords"`
	ImageURL string         `gorm:"size:1024" json:"imageUrl"`

	PublishedAt time.Time `gorm:"index" json:"publishedAt"`
	IngestedAt  time.Time `gorm:"index" json:"ingestedAt"`

	// 互动计数；未接入埋点的部署里恒为 0，热度排序会退化为纯时间序
	Views  int64 `json:"views"`
	Likes  int64 `json:"likes"`
	Shares int64 `json:"shares"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Interaction 记录一次用户阅读行为，只追加不修改。
// Category 从文章冗余过来，推荐计算时免去 join。
type Interaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"userId"`
	ArticleID uint      `gorm:"index" json:"articleId"`
	Category  string    `gorm:"size:64" json:"category"`
	ReadAt    time.Time `gorm:"index" json:"readAt"`
}

// Stat 是按分类 / 来源聚合出的统计项，每次查询现算，不落库
type Stat struct {
	Key      string    `json:"key"`
	Count    int64     `json:"count"`
	LatestAt time.Time `json:"latestAt"`
}

// Statistics 全局统计快照
type Statistics struct {
	TotalArticles   int64 `json:"totalArticles"`
	TodayArticles   int64 `json:"todayArticles"`
	TotalCategories int64 `json:"totalCategories"`
	TotalSources    int64 `json:"totalSources"`
}

var (
	// ErrNotFound 查无记录
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicateLink 插入时撞上 link 唯一索引；并发同步下属于正常结果，不算失败
	ErrDuplicateLink = errors.New("storage: duplicate link")
)

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	// TranslateError 让唯一索引冲突以 gorm.ErrDuplicatedKey 暴露出来，
	// 插入操作因此成为并发去重的最终裁决点
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Article{}, &Interaction{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// FindByLink 按去重键查找文章
func (s *Store) FindByLink(ctx context.Context, link string) (*Article, error) {
	var a Article
	err := s.DB.WithContext(ctx).Where("link = ?", link).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by link: %w", err)
	}
	return &a, nil
}

// FindByID 按主键查找文章
func (s *Store) FindByID(ctx context.Context, id uint) (*Article, error) {
	var a Article
	err := s.DB.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by id: %w", err)
	}
	return &a, nil
}

// Insert 写入一条新文章。link 冲突返回 ErrDuplicateLink，由调用方计入"已存在"
func (s *Store) Insert(ctx context.Context, a *Article) error {
	a.Title = toValidUTF8(a.Title)
	a.Summary = truncateRunesDB(toValidUTF8(a.Summary), 2048)

	err := s.DB.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateLink
	}
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// LatestIngestedAt 返回库里最新一条文章的入库时间，空库返回零值。
// 同步引擎用它做增量水位。
func (s *Store) LatestIngestedAt(ctx context.Context) (time.Time, error) {
	var a Article
	err := s.DB.WithContext(ctx).Select("ingested_at").Order("ingested_at DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest ingested at: %w", err)
	}
	return a.IngestedAt, nil
}

type cachedList struct {
	Items []Article `json:"items"`
	Total int64     `json:"total"`
}

// List 按入库时间倒序分页返回文章，可选按分类过滤；带 Redis 短 TTL 缓存
func (s *Store) List(ctx context.Context, category string, offset, limit int) ([]Article, int64, error) {
	cacheKey := fmt.Sprintf("news:list:%s:%d:%d", category, offset, limit)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached cachedList
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached.Items, cached.Total, nil
			}
		}
	}

	db := s.DB.WithContext(ctx).Model(&Article{})
	if category != "" {
		db = db.Where("category = ?", category)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	var list []Article
	if err := db.Order("ingested_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}

	// 回写缓存，依赖短 TTL 自然过期，不做按键失效
	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(cachedList{Items: list, Total: total}); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, total, nil
}

// Search 在标题 / 摘要 / 关键词里做不区分大小写的子串匹配，按入库时间倒序分页
func (s *Store) Search(ctx context.Context, keyword string, offset, limit int) ([]Article, int64, error) {
	pattern := "%" + keyword + "%"
	db := s.DB.WithContext(ctx).Model(&Article{}).
		Where("title ILIKE ? OR summary ILIKE ? OR keywords::text ILIKE ?", pattern, pattern, pattern)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count search: %w", err)
	}

	var list []Article
	if err := db.Order("ingested_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("search articles: %w", err)
	}
	return list, total, nil
}

// AggregateByCategory 按分类聚合文章数与最新入库时间
func (s *Store) AggregateByCategory(ctx context.Context) ([]Stat, error) {
	return s.aggregate(ctx, "category")
}

// AggregateBySource 按来源聚合文章数与最新入库时间
func (s *Store) AggregateBySource(ctx context.Context) ([]Stat, error) {
	return s.aggregate(ctx, "source")
}

func (s *Store) aggregate(ctx context.Context, column string) ([]Stat, error) {
	var stats []Stat
	err := s.DB.WithContext(ctx).Model(&Article{}).
		Select(column+" AS key, COUNT(*) AS count, MAX(ingested_at) AS latest_at").
		Where(column+" <> ''").
		Group(column).
		Order("count DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", column, err)
	}
	return stats, nil
}

// Statistics 返回全局统计快照（总量、今日新增、分类数、来源数）
func (s *Store) Statistics(ctx context.Context) (*Statistics, error) {
	db := s.DB.WithContext(ctx)
	stats := &Statistics{}

	if err := db.Model(&Article{}).Count(&stats.TotalArticles).Error; err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&Article{}).Where("ingested_at >= ?", startOfDay).Count(&stats.TodayArticles).Error; err != nil {
		return nil, fmt.Errorf("count today: %w", err)
	}

	if err := db.Model(&Article{}).Where("category <> ''").Distinct("category").Count(&stats.TotalCategories).Error; err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	if err := db.Model(&Article{}).Where("source <> ''").Distinct("source").Count(&stats.TotalSources).Error; err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}

	return stats, nil
}

// RecentArticles 返回 since 之后入库的全部文章，入库时间倒序，供热度排序用。
// 不设条数上限：窗口本身就是边界，截断会漏掉高互动的老文章。
func (s *Store) RecentArticles(ctx context.Context, since time.Time) ([]Article, error) {
	var list []Article
	err := s.DB.WithContext(ctx).
		Where("ingested_at >= ?", since).
		Order("ingested_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("recent articles: %w", err)
	}
	return list, nil
}

// RecentByCategories 返回指定分类集合内 since 之后入库的文章，排除用户已读过的 ID
func (s *Store) RecentByCategories(ctx context.Context, categories []string, since time.Time, excludeIDs []uint, limit int) ([]Article, error) {
	db := s.DB.WithContext(ctx).
		Where("category IN ?", categories).
		Where("ingested_at >= ?", since)
	if len(excludeIDs) > 0 {
		db = db.Where("id NOT IN ?", excludeIDs)
	}

	var list []Article
	if err := db.Order("ingested_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("recent by categories: %w", err)
	}
	return list, nil
}

// InteractionsByUser 返回某用户的全部阅读记录
func (s *Store) InteractionsByUser(ctx context.Context, userID string) ([]Interaction, error) {
	var list []Interaction
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("interactions by user: %w", err)
	}
	return list, nil
}

// RecordInteraction 追加一条阅读记录并累加文章阅读数
func (s *Store) RecordInteraction(ctx context.Context, userID string, articleID uint) error {
	a, err := s.FindByID(ctx, articleID)
	if err != nil {
		return err
	}

	it := &Interaction{
		UserID:    userID,
		ArticleID: a.ID,
		Category:  a.Category,
		ReadAt:    time.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(it).Error; err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}

	return s.increment(ctx, a.ID, "views")
}

// IncrementLikes 点赞计数 +1
func (s *Store) IncrementLikes(ctx context.Context, articleID uint) error {
	return s.increment(ctx, articleID, "likes")
}

// IncrementShares 分享计数 +1
func (s *Store) IncrementShares(ctx context.Context, articleID uint) error {
	return s.increment(ctx, articleID, "shares")
}

func (s *Store) increment(ctx context.Context, articleID uint, column string) error {
	res := s.DB.WithContext(ctx).Model(&Article{}).
		Where("id = ?", articleID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return fmt.Errorf("increment %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不超过数据库字段长度，
// 防止上游返回异常长文本导致入库失败
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
