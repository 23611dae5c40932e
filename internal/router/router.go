package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/medbook/booking-api/internal/middleware"
)

// Handler registers its routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
}

type Router struct {
	engine   *gin.Engine
	bookingH Handler
	webhookH Handler
	healthH  Handler
}

func NewRouter(bookingH, webhookH, healthH Handler, cfg Config) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:   engine,
		bookingH: bookingH,
		webhookH: webhookH,
		healthH:  healthH,
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = middleware.DefaultTimeoutConfig().Duration
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout}),
	)

	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)
	r.bookingH.RegisterRoutes(api)
	r.webhookH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
