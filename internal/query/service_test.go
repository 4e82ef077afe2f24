package query

import (
	"context"
	"testing"
	"time"

	"github.com/GaolZiny/newshub/internal/storage"
)

// fakeStore 内存里放 total 条文章，按 offset/limit 切片返回
type fakeStore struct {
	total       int
	gotCategory string
	gotKeyword  string
}

func (s *fakeStore) slice(offset, limit int) []storage.Article {
	if offset >= s.total {
		return nil
	}
	end := offset + limit
	if end > s.total {
		end = s.total
	}
	out := make([]storage.Article, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, storage.Article{ID: uint(i + 1), IngestedAt: time.Now()})
	}
	return out
}

func (s *fakeStore) List(ctx context.Context, category string, offset, limit int) ([]storage.Article, int64, error) {
	s.gotCategory = category
	return s.slice(offset, limit), int64(s.total), nil
}

func (s *fakeStore) Search(ctx context.Context, keyword string, offset, limit int) ([]storage.Article, int64, error) {
	s.gotKeyword = keyword
	return s.slice(offset, limit), int64(s.total), nil
}

func (s *fakeStore) FindByID(ctx context.Context, id uint) (*storage.Article, error) {
	return &storage.Article{ID: id}, nil
}

func (s *fakeStore) AggregateByCategory(ctx context.Context) ([]storage.Stat, error) {
	return []storage.Stat{{Key: "科技", Count: 3}}, nil
}

func (s *fakeStore) AggregateBySource(ctx context.Context) ([]storage.Stat, error) {
	return []storage.Stat{{Key: "reuters", Count: 5}}, nil
}

func (s *fakeStore) Statistics(ctx context.Context) (*storage.Statistics, error) {
	return &storage.Statistics{TotalArticles: int64(s.total)}, nil
}

func TestLatestPaginationMath(t *testing.T) {
	svc := NewService(&fakeStore{total: 45})

	// total=45, pageSize=20 → 3 页，第 3 页 5 条
	result, err := svc.Latest(context.Background(), 3, 20, "")
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if result.TotalPages != 3 {
		t.Fatalf("totalPages = %d, want 3", result.TotalPages)
	}
	if len(result.Items) != 5 {
		t.Fatalf("page 3 items = %d, want 5", len(result.Items))
	}
	if result.Total != 45 || result.Page != 3 || result.PageSize != 20 {
		t.Fatalf("unexpected envelope: %+v", result)
	}
}

func TestLatestClampsPageParams(t *testing.T) {
	svc := NewService(&fakeStore{total: 5})

	result, err := svc.Latest(context.Background(), 0, 500, "")
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if result.Page != 1 {
		t.Fatalf("page = %d, want clamped to 1", result.Page)
	}
	if result.PageSize != 20 {
		t.Fatalf("pageSize = %d, want clamped to default 20", result.PageSize)
	}
}

func TestLatestPassesCategoryFilter(t *testing.T) {
	store := &fakeStore{total: 1}
	svc := NewService(store)

	if _, err := svc.Latest(context.Background(), 1, 20, "财经"); err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if store.gotCategory != "财经" {
		t.Fatalf("category = %q, want 财经", store.gotCategory)
	}
}

func TestSearchEnvelope(t *testing.T) {
	store := &fakeStore{total: 0}
	svc := NewService(store)

	result, err := svc.Search(context.Background(), "climate", 1, 20)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if store.gotKeyword != "climate" {
		t.Fatalf("keyword = %q, want climate", store.gotKeyword)
	}
	if result.TotalPages != 0 {
		t.Fatalf("totalPages = %d, want 0 for empty result", result.TotalPages)
	}
	if result.Items == nil {
		t.Fatal("items must be an empty slice, not nil")
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
	}
	for _, tc := range cases {
		if got := totalPages(tc.total, tc.pageSize); got != tc.want {
			t.Fatalf("totalPages(%d, %d) = %d, want %d", tc.total, tc.pageSize, got, tc.want)
		}
	}
}
