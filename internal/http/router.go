// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/dermasense/assistant-backend/internal/assistant"
	"github.com/dermasense/assistant-backend/internal/config"
	"github.com/dermasense/assistant-backend/internal/domain"
	"github.com/dermasense/assistant-backend/internal/http/handlers"
	"github.com/dermasense/assistant-backend/internal/http/middleware"
	"github.com/dermasense/assistant-backend/internal/inference"
	"github.com/dermasense/assistant-backend/internal/repo"
	"github.com/dermasense/assistant-backend/internal/services"
	"github.com/dermasense/assistant-backend/internal/storage"
)

// conversationRepoShim adapts the repository free functions to the
// services.ConversationRepo interface expected by the ConversationService.
// This keeps services decoupled from the concrete repo package while reusing
// existing functions.
type conversationRepoShim struct{}

// CreateConversation proxies repo.CreateConversation.
func (conversationRepoShim) CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error) {
	return repo.CreateConversation(ctx, db, userID, title)
}

// ListConversations proxies repo.ListConversations.
func (conversationRepoShim) ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	return repo.ListConversations(ctx, db, userID)
}

// GetConversation proxies repo.GetConversation.
func (conversationRepoShim) GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id, userID)
}

// UpdateConversationTitle proxies repo.UpdateConversationTitle.
func (conversationRepoShim) UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateConversationTitle(ctx, db, id, userID, title)
}

// CountConversations proxies repo.CountConversations (pagination support).
func (conversationRepoShim) CountConversations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountConversations(ctx, db, userID)
}

// ListConversationsPage proxies repo.ListConversationsPage (pagination support).
func (conversationRepoShim) ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsPage(ctx, db, userID, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, static
// attachment serving, optional Swagger UI, and then mounts the versioned
// public API under /api/v*.
//
// files is the attachment store used by the analysis flow; its root is also
// mounted at /files for download.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Metrics
//  6. Idempotency validator (before rate limiter to allow bypass on replay)
//  7. Rate limiter (per user/IP, bypass on replay)
//  8. CORS and Security headers, gzip
//  9. Identity (per group; body limits are per group so uploads get headroom)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, files *storage.FileStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 6) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, conversationID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, conversationID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compress responses (analysis payloads and FAQ text benefit the most).
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Stored attachments (images/PDFs accepted by the analysis flow)
	if files != nil {
		r.Static("/files", files.Root)
	}

	// Swagger UI (optional)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/engine/inference
	engine := assistant.NewEngine(assistant.DefaultFAQ(), cfg.Assistant.FAQMinScore)

	var infClient *inference.Client
	if cfg.Inference.URL != "" {
		infClient = inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout)
	}

	convSvc := services.NewConversationService(db, conversationRepoShim{})
	msgSvc := &services.MessageService{
		DB:             db,
		Engine:         engine,
		HistoryLimit:   cfg.Assistant.HistoryLimit,
		MaxPromptRunes: 2000,
		MaxReplyRunes:  1500,
		TitleMaxLen:    60,
		TitleLocale:    language.English,
	}
	anSvc := &services.AnalysisService{
		DB:       db,
		Files:    files,
		Parser:   assistant.Parser{Default: cfg.Assistant.DefaultConfidence},
		MaxBytes: cfg.Upload.MaxBytes,
	}
	// Assign the remote capability only when configured; a typed-nil interface
	// would defeat the nil checks in the services.
	if infClient != nil {
		msgSvc.Provider = infClient
		anSvc.Remote = infClient
	}

	fbSvc := &services.FeedbackService{DB: db}
	h := handlers.New(convSvc, msgSvc, anSvc, fbSvc, assistant.DefaultFAQ())

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)

	// FAQ catalog is public (the marketing site fetches it without identity).
	api.GET("/faqs", h.ListFAQs)

	auth := middleware.RequireUser(middleware.AuthOptions{AllowAnon: cfg.AllowAnonUser})

	// JSON endpoints get a tight body cap (1 MiB).
	authed := api.Group("", auth, limitBody(1<<20))
	{
		// Conversations
		authed.POST("/conversations", h.CreateConversation)
		authed.GET("/conversations", h.ListConversations)
		authed.PUT("/conversations/:id/title", h.UpdateConversationTitle)

		// Messages
		authed.GET("/conversations/:id/messages", h.ListMessages)
		authed.POST("/conversations/:id/messages", h.PostMessage)

		// Feedback
		authed.POST("/messages/:id/feedback", h.LeaveFeedback)
	}

	// Uploads get headroom for the multipart envelope on top of the file cap.
	uploads := api.Group("", auth, limitBody(cfg.Upload.MaxBytes+(1<<20)))
	{
		uploads.POST("/conversations/:id/analyses", h.AnalyzeFile)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
