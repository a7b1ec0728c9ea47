package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	"github.com/lnhs-portal/docrequest-api/internal/service"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
	"github.com/lnhs-portal/docrequest-api/pkg/response"
)

// DocumentTypeHandler wires catalog endpoints.
type DocumentTypeHandler struct {
	service *service.DocumentTypeService
}

// NewDocumentTypeHandler creates a new handler.
func NewDocumentTypeHandler(svc *service.DocumentTypeService) *DocumentTypeHandler {
	return &DocumentTypeHandler{service: svc}
}

// List returns the catalog. Requesters see active entries only; the back
// office gets every entry with usage counters.
func (h *DocumentTypeHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if isBackOffice(claims) {
		stats, err := h.service.ListWithStats(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, stats, nil)
		return
	}

	types, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get returns one catalog entry.
func (h *DocumentTypeHandler) Get(c *gin.Context) {
	dt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dt, nil)
}

// Create adds a catalog entry.
func (h *DocumentTypeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.CreateDocumentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document type payload"))
		return
	}

	dt, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dt)
}

// Update edits a catalog entry.
func (h *DocumentTypeHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.UpdateDocumentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document type payload"))
		return
	}

	dt, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dt, nil)
}

// Delete removes an unused catalog entry.
func (h *DocumentTypeHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
