package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/stockroom-api/internal/models"
	appErrors "github.com/noah-isme/stockroom-api/pkg/errors"
	"github.com/noah-isme/stockroom-api/pkg/export"
)

const summaryCacheKey = "reports:ledger:summary"

type reportLedger interface {
	List(ctx context.Context, filter models.RequestLineFilter) ([]models.RequestLine, error)
	Summary(ctx context.Context) (*models.LedgerSummary, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportService builds read-only projections over the request ledger.
type ReportService struct {
	repo     reportLedger
	cache    summaryCache
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs the service. The cache may be nil.
func NewReportService(repo reportLedger, cache summaryCache, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{
		repo:     repo,
		cache:    cache,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Summary returns ledger counts, served from cache when fresh.
func (s *ReportService) Summary(ctx context.Context) (*models.LedgerSummary, error) {
	if s.cache != nil {
		var cached models.LedgerSummary
		if err := s.cache.Get(ctx, summaryCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build summary")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache ledger summary", zap.Error(err))
		}
	}
	return summary, nil
}

// Export renders matching ledger lines as CSV or PDF bytes.
func (s *ReportService) Export(ctx context.Context, filter models.RequestLineFilter, format string) ([]byte, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	if filter.Limit <= 0 {
		filter.Limit = 200
	}
	lines, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger lines")
	}

	table := buildLedgerTable(lines)
	switch format {
	case "pdf":
		data, err := s.pdf.Render(table, "Request Ledger")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", nil
	default:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", nil
	}
}

func buildLedgerTable(lines []models.RequestLine) export.Table {
	table := export.Table{
		Columns: []string{"Line", "Batch", "Item", "Kind", "Requested", "Approved", "Returned", "Status", "Requested At"},
	}
	for _, line := range lines {
		table.Rows = append(table.Rows, []string{
			line.ID,
			line.BatchID,
			line.ItemName,
			string(line.Kind),
			strconv.Itoa(line.RequestedQuantity),
			formatQty(line.ApprovedQuantity),
			formatQty(line.ReturnedQuantity),
			string(line.Status),
			line.RequestedAt.UTC().Format(time.RFC3339),
		})
	}
	return table
}

func formatQty(qty *int) string {
	if qty == nil {
		return ""
	}
	return fmt.Sprintf("%d", *qty)
}
