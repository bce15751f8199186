package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"headroom-havens-backend/config"
	"headroom-havens-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	caching := mw.Cache(cache.New(cacheTTL, 2*cacheTTL), cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/catalog", caching, handler.GetCatalog)
		api.GET("/catalog/:id", caching, handler.GetListing)

		api.POST("/sessions", handler.CreateSession)
		sessions := api.Group("/sessions/:sid")
		{
			sessions.GET("", handler.GetSession)
			sessions.POST("/navigate", handler.Navigate)
			sessions.PUT("/filter", handler.SetFilter)
			sessions.POST("/back", handler.Back)
			sessions.POST("/forward", handler.Forward)
			sessions.POST("/consent", handler.Consent)
			sessions.POST("/interest/open", handler.OpenInterest)
			sessions.POST("/interest/dismiss", handler.DismissInterest)
			sessions.POST("/forms/:form", handler.SubmitForm)
		}

		api.DELETE("/visitors/:vid", handler.ForgetVisitor)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
