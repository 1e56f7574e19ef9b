// Package httpapi wires the Gin transport to the application services and
// middleware: tracing, correlation IDs, redacted logging, panic recovery,
// metrics, compression, CORS, security headers, idempotency, and rate
// limiting, followed by the versioned delivery API itself.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tbourn/go-advocacy-backend/internal/config"
	"github.com/tbourn/go-advocacy-backend/internal/http/handlers"
	"github.com/tbourn/go-advocacy-backend/internal/http/middleware"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
	"github.com/tbourn/go-advocacy-backend/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// maxBodyBytes caps every request body. Delivery payloads top out around
// a few KiB of prose, so 1 MiB leaves generous headroom.
const maxBodyBytes = 1 << 20

// RegisterRoutes attaches the middleware stack and all endpoints to r.
//
// The resolver and dispatcher are injected: production wires the congress
// directory and the background dispatcher, tests substitute doubles.
//
// Middleware ordering is load-bearing. RequestID precedes the loggers so
// every line carries the id; the idempotency validator precedes the rate
// limiter so a replayed delivery can set the bypass flag before tokens
// are checked; the body limit precedes gzip so the cap applies to the
// encoded bytes a client actually sent.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, resolver services.RecipientResolver, dispatcher services.JobDispatcher, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Api-Key",       // delivery vendor credential
			"X-Session-Token", // guest identity, never logged in clear
		},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	// The Prometheus handler negotiates its own encoding, so /metrics is
	// excluded from gzip.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		jobReplayLookup(db),
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	for _, mw := range corsMiddleware(cfg.CORS.AllowedOrigins) {
		r.Use(mw)
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	deliverySvc := services.NewDeliveryService(db, resolver, dispatcher)
	jobSvc := services.NewJobService(db)
	h := handlers.New(deliverySvc, jobSvc, cfg.IdempotencyTTL)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/deliveries", h.CreateDelivery)

		api.GET("/jobs", h.ListJobs)
		api.GET("/jobs/:id", h.GetJob)

		api.GET("/representatives", h.ListRepresentatives)
	}
}

// jobReplayLookup adapts the idempotency repository to the middleware's
// lookup contract. Lookup failures read as "no replay": a storage error
// must not block fresh deliveries, and the accept handler re-checks the
// record before serving a replay body.
func jobReplayLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, senderID, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, senderID, key, now)
		if err != nil || rec == nil {
			return false, nil
		}
		return true, nil
	}
}

// corsMiddleware builds the CORS chain for the configured origins.
//
// With no allowlist the API is public: ACAO is forced to "*" on every
// response (gin-contrib/cors only sets it when an Origin header is
// present, which trips up plain health checks), and all origins are
// allowed without credentials. With an allowlist, a leading middleware
// echoes listed origins with a Vary: Origin marker and gin-contrib/cors
// enforces the list on preflights.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Session-Token", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false, // stays false while "*" is possible
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		star := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{star, cors.New(base)}
	}

	base.AllowOrigins = origins
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	echo := func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	}
	return []gin.HandlerFunc{echo, cors.New(base)}
}

// limitBody wraps every request body in http.MaxBytesReader; reads past
// the cap fail in the handler.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" and "" as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
