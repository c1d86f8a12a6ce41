package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/callbacks"
	"translation-backend/internal/feedback"
	"translation-backend/internal/quotefiles"
	"translation-backend/internal/quotes"
	"translation-backend/internal/runs"
	"translation-backend/internal/shared/config"
	"translation-backend/internal/shared/metrics"
	"translation-backend/internal/shared/server/middleware"
	"translation-backend/internal/shared/server/respond"
)

const (
	rateGroupDefault  = "DEFAULT"
	rateGroupPolling  = "POLLING"
	rateGroupCallback = "CALLBACK"

	// A batch run posts one callback per document in quick succession.
	callbackBurst = 50
)

// RouterDeps are the handlers mounted on the API.
type RouterDeps struct {
	Config          config.Config
	QuoteHandler    *quotes.Handler
	FileHandler     *quotefiles.Handler
	RunHandler      *runs.Handler
	CallbackHandler *callbacks.Handler
	FeedbackHandler *feedback.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.CallbackHandler != nil {
		deps.CallbackHandler.RegisterRoutes(api, middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupCallback,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupCallback: {Rate: positive(cfg.CallbackRateLimit, 5), Burst: burst(cfg.CallbackRateLimit, callbackBurst)},
			},
		}))
	}
	if deps.FileHandler != nil {
		deps.FileHandler.RegisterPublicRoutes(api)
	}

	apiRate := positive(cfg.APIRateLimit, 10)
	authed := api.Group("",
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault: {Rate: apiRate, Burst: burst(apiRate, 10)},
				rateGroupPolling: {Rate: apiRate * 2, Burst: burst(apiRate*2, 20)},
			},
		}),
	)
	registerMeRoutes(authed)
	if deps.QuoteHandler != nil {
		deps.QuoteHandler.RegisterRoutes(authed)
	}
	if deps.FileHandler != nil {
		deps.FileHandler.RegisterRoutes(authed)
	}
	if deps.RunHandler != nil {
		deps.RunHandler.RegisterRoutes(authed)
	}
	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.RegisterRoutes(authed)
	}

	return r
}

// rateGroupFor gives status polling its own, larger bucket.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodGet && strings.HasSuffix(c.Request.URL.Path, "/status") {
		return rateGroupPolling
	}
	return rateGroupDefault
}

func positive(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

func burst(rate float64, min int) int {
	b := int(rate * 2)
	if b < min {
		return min
	}
	return b
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
