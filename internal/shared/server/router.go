package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"phelipe-backend/internal/llm"
	"phelipe-backend/internal/llm/gemini"
	"phelipe-backend/internal/reviews"
	"phelipe-backend/internal/shared/config"
	"phelipe-backend/internal/shared/metrics"
	"phelipe-backend/internal/shared/server/middleware"
	"phelipe-backend/internal/shared/server/respond"
	"phelipe-backend/internal/shared/storage/db"
)

const llmGroup = "LLM"

// NewRouter constructs the Gin engine with middleware, dependencies and routes
// registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				// Model-backed routes are expensive; keep them slow.
				llmGroup:  {Rate: 0.5, Burst: 3},
				"DEFAULT": {Rate: 10, Burst: 30},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost {
					return llmGroup
				}
				return ""
			},
		}),
	)

	sqlDB := connectDB(cfg)

	var repo reviews.Repo
	if sqlDB != nil {
		repo = &reviews.PGRepo{DB: sqlDB}
	} else {
		repo = reviews.NewMemoryRepo()
	}

	svc := &reviews.Service{Repo: repo, LLM: buildLLM(cfg), IssuingBody: cfg.IssuingBody}
	handler := reviews.NewHandler(svc)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	handler.RegisterRoutes(api)

	r.GET("/metrics", metrics.Handler())

	return r
}

func connectDB(cfg config.Config) *sql.DB {
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL empty; using in-memory repository")
		return nil
	}
	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(context.Background(), cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database, falling back to memory: %v", err)
		return nil
	}
	if err := db.RunMigrations(context.Background(), sqlDB); err != nil {
		log.Printf("failed to run migrations, falling back to memory: %v", err)
		sqlDB.Close()
		return nil
	}
	return sqlDB
}

func buildLLM(cfg config.Config) llm.Client {
	if cfg.LLMProvider == "gemini" {
		client, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("gemini client unavailable: %v", err)
			return llm.PlaceholderClient{}
		}
		return client
	}
	log.Printf("unknown LLM_PROVIDER %q; model calls will fail", cfg.LLMProvider)
	return llm.PlaceholderClient{}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
