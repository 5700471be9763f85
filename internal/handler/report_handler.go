package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stockroom-api/internal/models"
	"github.com/noah-isme/stockroom-api/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context) (*models.LedgerSummary, error)
	Export(ctx context.Context, filter models.RequestLineFilter, format string) ([]byte, string, error)
}

// ReportHandler exposes reporting projections over the ledger.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Summary godoc
// @Summary Ledger counts by status and kind
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/requests/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export ledger lines as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /reports/requests/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filter, err := parseLineFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, contentType, err := h.service.Export(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "request-ledger.csv"
	if contentType == "application/pdf" {
		filename = "request-ledger.pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
