package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ForgetVisitor handles DELETE /api/visitors/:vid. It clears the visitor's
// stored consent and engagement keys; their next session starts undecided.
func (h *Handler) ForgetVisitor(c *gin.Context) {
	vid := c.Param("vid")
	if _, err := uuid.Parse(vid); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visitor id"})
		return
	}
	if !h.requireStore(c) {
		return
	}

	if err := h.store.DropScope(c.Request.Context(), vid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
