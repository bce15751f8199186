package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"headroom-havens-backend/internal/lead"
	"headroom-havens-backend/internal/navigation"
	"headroom-havens-backend/internal/session"
)

type createSessionRequest struct {
	Path      string `json:"path"`
	VisitorID string `json:"visitorId"`
}

type navigateRequest struct {
	View     string `json:"view" binding:"required"`
	EntityID int64  `json:"entityId"`
}

type consentRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
}

type submitFormRequest struct {
	Fields lead.Fields `json:"fields"`
}

// CreateSession handles POST /api/sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	s, err := h.sessions.Create(req.Path, req.VisitorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondSnapshot(c, http.StatusCreated, s)
}

// GetSession handles GET /api/sessions/:sid.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respondSnapshot(c, http.StatusOK, s)
}

// Navigate handles POST /api/sessions/:sid/navigate. A navigation refused
// for lack of consent answers 403 with the notice and the unchanged page.
func (h *Handler) Navigate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.Navigate(navigation.ParseView(req.View), req.EntityID)
	if errors.Is(err, navigation.ErrConsentRequired) {
		h.respondSnapshot(c, http.StatusForbidden, s)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.respondSnapshot(c, http.StatusOK, s)
}

// SetFilter handles PUT /api/sessions/:sid/filter, using the catalog query
// parameters.
func (h *Handler) SetFilter(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.SetFilter(f)
	h.respondSnapshot(c, http.StatusOK, s)
}

// Back handles POST /api/sessions/:sid/back. At the first entry the page is
// unchanged.
func (h *Handler) Back(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Back()
	h.respondSnapshot(c, http.StatusOK, s)
}

// Forward handles POST /api/sessions/:sid/forward.
func (h *Handler) Forward(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Forward()
	h.respondSnapshot(c, http.StatusOK, s)
}

// Consent handles POST /api/sessions/:sid/consent.
func (h *Handler) Consent(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	if req.Decision == "accept" {
		err = s.Accept()
	} else {
		err = s.Reject()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.respondSnapshot(c, http.StatusOK, s)
}

// OpenInterest handles POST /api/sessions/:sid/interest/open.
func (h *Handler) OpenInterest(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if _, err := s.OpenInterest(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.respondSnapshot(c, http.StatusOK, s)
}

// DismissInterest handles POST /api/sessions/:sid/interest/dismiss.
func (h *Handler) DismissInterest(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.DismissInterest(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.respondSnapshot(c, http.StatusOK, s)
}

// SubmitForm handles POST /api/sessions/:sid/forms/:form.
func (h *Handler) SubmitForm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req submitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.Submit(c.Request.Context(), session.FormKind(c.Param("form")), req.Fields)
	switch {
	case errors.Is(err, session.ErrUnknownForm):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNotOffered):
		c.JSON(http.StatusConflict, gin.H{"error": "interest form is not available"})
	case errors.Is(err, lead.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "submission already in progress"})
	case err != nil:
		log.Printf("Session %s: form %s submission failed: %v", s.ID, c.Param("form"), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "submission failed, please try again"})
	default:
		c.JSON(http.StatusOK, out)
	}
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("sid"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return s, true
}

func (h *Handler) respondSnapshot(c *gin.Context, status int, s *session.Session) {
	snap, err := s.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(status, snap)
}
