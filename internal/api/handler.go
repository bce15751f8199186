package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/session"
	"headroom-havens-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	sessions *session.Manager
	catalog  *catalog.Catalog
	webpush  *webpush.Options
}

// NewHandler creates a new API handler. s may be nil when no database is
// configured; the subscription endpoints then answer 503.
func NewHandler(s store.Store, sessions *session.Manager, c *catalog.Catalog, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		sessions: sessions,
		catalog:  c,
		webpush:  webpushOptions,
	}
}
