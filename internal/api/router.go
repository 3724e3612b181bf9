package api

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/killthisworld/vybrix/config"
	"github.com/killthisworld/vybrix/internal/api/handler"
	"github.com/killthisworld/vybrix/internal/api/middleware"
	"github.com/killthisworld/vybrix/internal/model"
	"github.com/killthisworld/vybrix/pkg/logger"
)

// NewRouter 组装路由与中间件
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if cfg.Telemetry.SentryDSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("vybrix"))
	}

	registerValidations()

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	v1 := r.Group("/api/v1")
	{
		v1.POST("/messages", middleware.RateLimit(rate.Limit(1), 5), h.Send)
		v1.GET("/messages/today", h.Receive)
		v1.POST("/internal/match/run", h.RunMatch)
	}
	return r
}

// registerValidations 注册 pool_day 自定义校验（YYYY-MM-DD）
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("pool_day", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(model.PoolDayLayout, fl.Field().String())
			return err == nil
		})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
