package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/GaolZiny/newshub/internal/config"
	"github.com/GaolZiny/newshub/internal/fetcher"
	"github.com/GaolZiny/newshub/internal/storage"
	"github.com/GaolZiny/newshub/internal/syncer"
)

// 手动触发一轮同步，打印报告后退出。
// 给运维和调试用，跟 cron 触发走完全相同的路径。
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	store, err := storage.NewStore(cfg.Database.DSN, cfg.Redis.Addr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	client := fetcher.NewClient(cfg.Upstream.BaseURL, cfg.UpstreamTimeout())
	engine := syncer.NewEngine(client, store, syncer.Options{
		PageSize: cfg.Sync.PageSize,
		MaxPages: cfg.Sync.MaxPages,
		Workers:  cfg.Sync.Workers,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout())
	defer cancel()

	report := engine.Run(ctx)

	out, _ := json.MarshalIndent(report, "", "  ")
	os.Stdout.Write(append(out, '\n'))

	if !report.OK {
		os.Exit(1)
	}
}
