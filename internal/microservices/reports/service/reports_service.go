package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"venue-pos/internal/domain"
	"venue-pos/internal/microservices/reports/models"
	"venue-pos/internal/microservices/reports/repository"
)

// SalesColumns is the header of the sales export.
var SalesColumns = []string{
	"order_number", "created_at", "order_type", "table", "customer", "status",
	"items", "subtotal", "tax", "discount", "total",
}

const maxRange = 366 * 24 * time.Hour

type ReportsServiceInterface interface {
	SalesRows(ctx context.Context, venueID string, from, to time.Time) ([]models.SalesRow, error)
	OrderTimeline(ctx context.Context, venueID, orderID string, limit, offset int) ([]models.TimelineEvent, error)
}

type ReportsService struct {
	repo repository.ReportsRepoInterface
}

func NewReportsService(repo repository.ReportsRepoInterface) *ReportsService {
	return &ReportsService{repo: repo}
}

func (s *ReportsService) SalesRows(ctx context.Context, venueID string, from, to time.Time) ([]models.SalesRow, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty date range", domain.ErrValidation)
	}
	if to.Sub(from) > maxRange {
		return nil, fmt.Errorf("%w: date range longer than a year", domain.ErrValidation)
	}
	return s.repo.SalesRows(ctx, venueID, from, to)
}

func (s *ReportsService) OrderTimeline(ctx context.Context, venueID, orderID string, limit, offset int) ([]models.TimelineEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.OrderTimeline(ctx, venueID, orderID, limit, offset)
}

// WriteCSV writes a header and one record per row. Fields holding commas,
// quotes or line breaks are quoted and inner quotes doubled.
func WriteCSV(w io.Writer, columns []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// SalesRecords flattens rows in SalesColumns order. Amounts keep a plain
// dot decimal so spreadsheets of any locale can parse them.
func SalesRecords(rows []models.SalesRow, loc *time.Location) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		table := ""
		if r.TableNumber != nil {
			table = strconv.Itoa(*r.TableNumber)
		}
		out = append(out, []string{
			r.OrderNumber,
			r.CreatedAt.In(loc).Format(time.RFC3339),
			r.OrderType,
			table,
			r.CustomerName,
			r.Status,
			strconv.Itoa(r.ItemCount),
			r.Subtotal.StringFixed(2),
			r.Tax.StringFixed(2),
			r.Discount.StringFixed(2),
			r.Total.StringFixed(2),
		})
	}
	return out
}
