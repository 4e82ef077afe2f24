package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/GaolZiny/newshub/internal/query"
	"github.com/GaolZiny/newshub/internal/ranking"
	"github.com/GaolZiny/newshub/internal/scheduler"
	"github.com/GaolZiny/newshub/internal/storage"
)

// Server 持有各读写服务，只做参数解析和响应包装，业务都在下层
type Server struct {
	query     *query.Service
	ranking   *ranking.Engine
	store     *storage.Store
	scheduler *scheduler.Scheduler
}

func NewServer(q *query.Service, r *ranking.Engine, store *storage.Store, sched *scheduler.Scheduler) *Server {
	return &Server{
		query:     q,
		ranking:   r,
		store:     store,
		scheduler: sched,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/news/latest", s.listLatest)
		api.GET("/news/search", s.search)
		api.GET("/news/hot", s.hot)
		api.GET("/news/recommended", s.recommended)
		api.GET("/news/:id", s.detail)
		api.POST("/news/:id/read", s.read)
		api.POST("/news/:id/like", s.like)
		api.POST("/news/:id/share", s.share)

		api.GET("/categories", s.categories)
		api.GET("/sources", s.sources)
		api.GET("/statistics", s.statistics)

		api.POST("/sync", s.sync)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listLatest(c *gin.Context) {
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "pageSize", 20)
	category := c.Query("category")

	result, err := s.query.Latest(c.Request.Context(), page, pageSize, category)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, result)
}

func (s *Server) search(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		fail(c, http.StatusBadRequest, "keyword is required")
		return
	}
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "pageSize", 20)

	result, err := s.query.Search(c.Request.Context(), keyword, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, result)
}

func (s *Server) detail(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := s.query.Detail(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, a)
}

func (s *Server) hot(c *gin.Context) {
	limit := intQuery(c, "limit", ranking.DefaultLimit)
	windowDays := intQuery(c, "windowDays", ranking.DefaultWindowDays)

	items, err := s.ranking.Hot(c.Request.Context(), limit, windowDays)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, items)
}

func (s *Server) recommended(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		fail(c, http.StatusBadRequest, "userId is required")
		return
	}
	limit := intQuery(c, "limit", ranking.DefaultLimit)

	items, err := s.ranking.Recommend(c.Request.Context(), userID, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, items)
}

// read 记录一次阅读行为并累加阅读数，推荐计算依赖这些记录
func (s *Server) read(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	userID := c.Query("userId")
	if userID == "" {
		fail(c, http.StatusBadRequest, "userId is required")
		return
	}

	if err := s.store.RecordInteraction(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, http.StatusNotFound, "article not found")
			return
		}
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, gin.H{"recorded": true})
}

func (s *Server) like(c *gin.Context) {
	s.incrementCounter(c, s.store.IncrementLikes)
}

func (s *Server) share(c *gin.Context) {
	s.incrementCounter(c, s.store.IncrementShares)
}

func (s *Server) incrementCounter(c *gin.Context, inc func(ctx context.Context, id uint) error) {
	id, err := idParam(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	if err := inc(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, http.StatusNotFound, "article not found")
			return
		}
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, gin.H{"updated": true})
}

func (s *Server) categories(c *gin.Context) {
	stats, err := s.query.Categories(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, stats)
}

func (s *Server) sources(c *gin.Context) {
	stats, err := s.query.Sources(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, stats)
}

func (s *Server) statistics(c *gin.Context) {
	stats, err := s.query.Statistics(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	ok(c, stats)
}

// sync 手动触发一轮同步。引擎在跑时返回跳过报告而不是排队。
func (s *Server) sync(c *gin.Context) {
	report := s.scheduler.RunOnce()
	ok(c, report)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

func idParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
