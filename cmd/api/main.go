package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GaolZiny/newshub/internal/api"
	"github.com/GaolZiny/newshub/internal/config"
	"github.com/GaolZiny/newshub/internal/fetcher"
	"github.com/GaolZiny/newshub/internal/query"
	"github.com/GaolZiny/newshub/internal/ranking"
	"github.com/GaolZiny/newshub/internal/scheduler"
	"github.com/GaolZiny/newshub/internal/storage"
	"github.com/GaolZiny/newshub/internal/syncer"
)

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

	sched, err := scheduler.New(cfg.Sync.CronSpec, engine, cfg.RunTimeout())
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	r := gin.Default()
	apiServer := api.NewServer(query.NewService(store), ranking.NewEngine(store), store, sched)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.App.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("starting api server at %s ...", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server exit: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown: %v", err)
	}
	log.Println("server exiting")
}
