package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/labops-api/internal/handler"
	"github.com/jwalitptl/labops-api/internal/middleware"
	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/pkg/metrics"
)

// Handler registers a set of routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers bundles the domain route sets mounted under /api/v1.
type Handlers struct {
	Instrument Handler
	Reagent    Handler
	TestOrder  Handler
	RawResult  Handler
	Config     Handler
	Audit      Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	h        *handler.Handler
	metrics  *routerMetrics
	config   RouterConfig
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
	CacheTTL      time.Duration
	// Metrics, when set, feeds the domain command counters from the
	// matched routes.
	Metrics *metrics.Metrics
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, h *handler.Handler, config RouterConfig) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	metrics := initRouterMetrics(config.MetricsPrefix)

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		h:        h,
		metrics:  metrics,
		config:   config,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: 30 * time.Second}),
		middleware.RequestID(),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   float64(config.RateLimit),
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.handlers.Instrument.RegisterRoutes(rg)
	r.handlers.Reagent.RegisterRoutes(rg)
	r.handlers.TestOrder.RegisterRoutes(rg)
	r.handlers.RawResult.RegisterRoutes(rg)
	r.handlers.Config.RegisterRoutes(rg)

	// Audit reads are the only routes with an extra gate at the router; the
	// audit service itself has no actor and never authorizes.
	auditGroup := rg.Group("")
	auditGroup.Use(r.auth.RequirePermission(model.PermViewAuditLogs))
	if r.config.CacheTTL > 0 {
		auditGroup.Use(middleware.ResponseCache(r.config.CacheTTL))
	}
	r.handlers.Audit.RegisterRoutes(auditGroup)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	prometheus.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}

		if m := r.config.Metrics; m != nil {
			if entity, action, ok := commandLabels(c.Request.Method, path); ok {
				outcome := "ok"
				if c.Writer.Status() >= 400 {
					outcome = "error"
				}
				m.Commands.WithLabelValues(entity, action, outcome).Inc()
			}
		}
	}
}

// commandLabels derives the command counter labels from a matched route.
// Only mutating methods are commands; reads are covered by the request
// metrics. The entity is the first path segment under /api/v1, the action
// the last literal segment (e.g. "mode", "force"), or the lowercased
// method when the route has none.
func commandLabels(method, path string) (entity, action string, ok bool) {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return "", "", false
	}
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	if trimmed == path || trimmed == "" {
		return "", "", false
	}

	segments := strings.Split(trimmed, "/")
	entity = segments[0]
	action = strings.ToLower(method)
	for i := len(segments) - 1; i > 0; i-- {
		if !strings.HasPrefix(segments[i], ":") {
			action = segments[i]
			break
		}
	}
	return entity, action, true
}

func (r *Router) Use(middleware ...gin.HandlerFunc) {
	r.engine.Use(middleware...)
}
