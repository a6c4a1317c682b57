package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pos-reconciliation/internal/config"
)

// NewRouter builds the gin engine with middleware and all routes registered.
func NewRouter(h *ReconciliationHandler, cfg config.ServerConfig, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	}

	RegisterRoutes(r, h, int64(cfg.MaxUploadMB)<<20)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func RegisterRoutes(r *gin.Engine, h *ReconciliationHandler, maxBodyBytes int64) {
	// Health check
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")

	recon := api.Group("/reconciliations")
	recon.POST("", limitBody(maxBodyBytes), h.Reconcile)
	recon.POST("/upload", limitBody(maxBodyBytes), h.Upload)
	recon.GET("", h.ListSessions)
	recon.GET("/:id", h.GetSession)
}

// limitBody caps the request body; reads past n fail and binding reports it.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds())
	}
}
