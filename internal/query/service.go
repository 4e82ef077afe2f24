package query

import (
	"context"

	"github.com/GaolZiny/newshub/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store 是读服务需要的存储能力
type Store interface {
	List(ctx context.Context, category string, offset, limit int) ([]storage.Article, int64, error)
	Search(ctx context.Context, keyword string, offset, limit int) ([]storage.Article, int64, error)
	FindByID(ctx context.Context, id uint) (*storage.Article, error)
	AggregateByCategory(ctx context.Context) ([]storage.Stat, error)
	AggregateBySource(ctx context.Context) ([]storage.Stat, error)
	Statistics(ctx context.Context) (*storage.Statistics, error)
}

// PagedArticles 分页查询的统一返回结构
type PagedArticles struct {
	Items      []storage.Article `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"totalPages"`
}

// Service 暴露面向路由层的读操作，分页参数在这里统一校正
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Latest 按入库时间倒序分页返回文章，可选分类过滤
func (s *Service) Latest(ctx context.Context, page, pageSize int, category string) (*PagedArticles, error) {
	page, pageSize = normalize(page, pageSize)
	items, total, err := s.store.List(ctx, category, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return paged(items, page, pageSize, total), nil
}

// Search 关键词搜索（标题 / 摘要 / 关键词），分页返回
func (s *Service) Search(ctx context.Context, keyword string, page, pageSize int) (*PagedArticles, error) {
	page, pageSize = normalize(page, pageSize)
	items, total, err := s.store.Search(ctx, keyword, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return paged(items, page, pageSize, total), nil
}

// Detail 按主键返回单篇文章，未找到时透传 storage.ErrNotFound
func (s *Service) Detail(ctx context.Context, id uint) (*storage.Article, error) {
	return s.store.FindByID(ctx, id)
}

// Categories 分类聚合列表
func (s *Service) Categories(ctx context.Context) ([]storage.Stat, error) {
	return s.store.AggregateByCategory(ctx)
}

// Sources 来源聚合列表
func (s *Service) Sources(ctx context.Context) ([]storage.Stat, error) {
	return s.store.AggregateBySource(ctx)
}

// Statistics 全局统计快照
func (s *Service) Statistics(ctx context.Context) (*storage.Statistics, error) {
	return s.store.Statistics(ctx)
}

func normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func paged(items []storage.Article, page, pageSize int, total int64) *PagedArticles {
	if items == nil {
		items = []storage.Article{}
	}
	return &PagedArticles{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages(total, pageSize),
	}
}

// totalPages = ceil(total / pageSize)
func totalPages(total int64, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
