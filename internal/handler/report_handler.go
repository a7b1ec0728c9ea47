package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	"github.com/lnhs-portal/docrequest-api/internal/service"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
	"github.com/lnhs-portal/docrequest-api/pkg/response"
)

// ReportHandler wires the admin reporting endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Summary returns the dashboard aggregates.
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export streams a CSV export as an attachment.
func (h *ReportHandler) Export(c *gin.Context) {
	exportType := models.ExportType(c.Param("type"))
	if !exportType.Valid() {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "unknown export type"))
		return
	}

	var filter models.ExportFilter
	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "date_from must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "date_to must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = &t
	}

	data, err := h.service.Export(c.Request.Context(), exportType, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("%s_export_%s.csv", exportType, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
