package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam-duty/config"
	"exam-duty/internal/api/handler"
	"exam-duty/internal/api/middleware"
	"exam-duty/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时写操作不限流，健康检查中 redis 标记为 disabled
func Setup(cfg *config.Config, h *handler.Handler, db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, "/health", "/metrics"))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthHandler(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = rdb
	}
	limit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 名册（只读）
		v1.GET("/staff", h.Roster.ListStaff)
		v1.GET("/halls/blocks", h.Roster.ListBlocks)

		// 分配
		v1.POST("/allocations", limit, h.Allocation.Run)

		// 监考分配：静态路径需先于 /:id 注册
		assignments := v1.Group("/assignments")
		{
			assignments.GET("", h.Assignment.List)
			assignments.POST("/freeze", limit, h.Assignment.FreezeAll)
			assignments.GET("/change-logs", h.Assignment.ListChangeLogs)
			assignments.POST("/:id/freeze", limit, h.Assignment.Freeze)
			assignments.GET("/:id/candidates", h.Assignment.GetCandidates)
			assignments.PUT("/:id/staff", limit, h.Assignment.Reassign)
		}

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/assignments", h.Export.ExportAssignments)
		}
	}

	return r
}

// healthHandler 数据库不可用时返回 503；redis 为可选依赖，仅报告状态
func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		dbState := "ok"
		if err := pingDB(ctx, db); err != nil {
			dbState = "down"
			status = http.StatusServiceUnavailable
		}

		redisState := "disabled"
		if rdb != nil {
			redisState = "ok"
			if err := rdb.Ping(ctx); err != nil {
				redisState = "down"
			}
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "unavailable"
		}
		c.JSON(status, gin.H{
			"status":   overall,
			"database": dbState,
			"redis":    redisState,
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
