package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/render"
)

// filterFromQuery reads min_rating, price_tier, low_headroom and q. Absent
// parameters leave their clause unset.
func filterFromQuery(c *gin.Context) (catalog.Filter, error) {
	var f catalog.Filter

	if raw := c.Query("min_rating"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid min_rating %q", raw)
		}
		f.MinSafetyRating = n
	}
	if raw := c.Query("price_tier"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid price_tier %q", raw)
		}
		f.PriceTier = catalog.PriceTier(n)
	}
	if raw := c.Query("low_headroom"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("invalid low_headroom %q", raw)
		}
		f.LowHeadroomOnly = b
	}
	f.Query = c.Query("q")
	return f, nil
}

// GetCatalog handles GET /api/catalog.
func (h *Handler) GetCatalog(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, render.Cards(h.catalog.Filter(f)))
}

// GetListing handles GET /api/catalog/:id.
func (h *Handler) GetListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	l, err := h.catalog.Resolve(id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, render.NewCard(l))
}
