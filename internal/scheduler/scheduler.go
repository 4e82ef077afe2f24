package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GaolZiny/newshub/internal/syncer"
)

// Scheduler 按 cron 表达式周期触发同步引擎。
// 引擎不支持并行跑多轮，这里用 running 标记做串行化：
// 上一轮还没结束时，新的 tick 直接跳过，等下一个周期。
type Scheduler struct {
	cron       *cron.Cron
	engine     *syncer.Engine
	runTimeout time.Duration
	running    atomic.Bool
}

func New(spec string, engine *syncer.Engine, runTimeout time.Duration) (*Scheduler, error) {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}

	c := cron.New()
	s := &Scheduler{
		cron:       c,
		engine:     engine,
		runTimeout: runTimeout,
	}

	_, err := c.AddFunc(spec, func() { s.RunOnce() })
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮同步，避免与服务启动期的请求争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.RunOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，cron tick 和手动触发共用。
// 已有一轮在跑时不等待、不叠加，直接返回失败报告。
func (s *Scheduler) RunOnce() syncer.Report {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("sync: previous run still in progress, skip this tick")
		return syncer.Report{
			StartedAt: time.Now(),
			OK:        false,
			Message:   "sync skipped: previous run still in progress",
		}
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	return s.engine.Run(ctx)
}
