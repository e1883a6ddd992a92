// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/scentdb-backend/internal/config"
	"github.com/javajoker/scentdb-backend/internal/handlers"
	"github.com/javajoker/scentdb-backend/internal/middleware"
	"github.com/javajoker/scentdb-backend/internal/normalize"
	"github.com/javajoker/scentdb-backend/internal/services"
	"github.com/javajoker/scentdb-backend/internal/utils"
)

// Initialize wires services, handlers and middleware. The returned rate limiter
// should have Cleanup started by the caller for long-running servers.
func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.RateLimiter) {
	// Initialize services
	reconcileService := services.NewReconcileService(db, cfg.Reconcile)
	batchService := services.NewBatchService(reconcileService, cfg.Batch)
	catalogService := services.NewCatalogService(db, normalize.For(cfg.Reconcile.ComposeUnicode))

	// Initialize handlers
	ingestHandler := handlers.NewIngestHandler(reconcileService, batchService, cfg.Source)
	perfumeHandler := handlers.NewPerfumeHandler(catalogService)

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	ingestLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			utils.ServiceUnavailableResponse(c, "database unreachable", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := r.Group("/v1")
	{
		// Ingestion routes
		ingest := v1.Group("/ingest")
		ingest.Use(middleware.ServiceAuthRequired(), ingestLimiter.Middleware())
		{
			ingest.POST("/candidates", ingestHandler.IngestCandidate)
			ingest.POST("/batch", ingestHandler.IngestBatch)
		}

		// Catalog routes (public)
		perfumes := v1.Group("/perfumes")
		{
			perfumes.GET("", perfumeHandler.GetPerfumes)
			perfumes.GET("/:id", perfumeHandler.GetPerfume)
		}
	}

	return r, ingestLimiter
}
