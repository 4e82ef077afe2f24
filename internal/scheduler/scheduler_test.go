package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GaolZiny/newshub/internal/fetcher"
	"github.com/GaolZiny/newshub/internal/storage"
	"github.com/GaolZiny/newshub/internal/syncer"
)

// blockingFetcher 第一次调用时阻塞到 release 关闭，用于模拟慢的一轮同步
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) FetchPage(ctx context.Context, page, pageSize int) ([]fetcher.Candidate, error) {
	f.once.Do(func() { close(f.started) })
	select {
	case <-f.release:
	case <-ctx.Done():
	}
	return nil, nil
}

type nopStore struct{}

func (nopStore) LatestIngestedAt(ctx context.Context) (time.Time, error) { return time.Time{}, nil }
func (nopStore) FindByLink(ctx context.Context, link string) (*storage.Article, error) {
	return nil, storage.ErrNotFound
}
func (nopStore) Insert(ctx context.Context, a *storage.Article) error { return nil }

func TestRunOnceSkipsWhileRunning(t *testing.T) {
	f := &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	engine := syncer.NewEngine(f, nopStore{}, syncer.Options{})

	s, err := New("@hourly", engine, time.Minute)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	done := make(chan syncer.Report, 1)
	go func() { done <- s.RunOnce() }()

	// 等第一轮真正跑起来，再触发第二次
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never started")
	}

	second := s.RunOnce()
	if second.OK {
		t.Fatalf("overlapping tick must be skipped: %+v", second)
	}
	if !strings.Contains(second.Message, "previous run still in progress") {
		t.Fatalf("unexpected message: %q", second.Message)
	}

	close(f.release)
	select {
	case first := <-done:
		if !first.OK {
			t.Fatalf("first run should complete ok: %+v", first)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first run never finished")
	}
}

func TestNewRejectsBadCronSpec(t *testing.T) {
	engine := syncer.NewEngine(&blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}, nopStore{}, syncer.Options{})
	if _, err := New("not a cron spec", engine, time.Minute); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
