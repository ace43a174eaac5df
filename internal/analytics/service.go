package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-storefront/internal/models"
	"ms-storefront/internal/utils"
)

const dateLayout = "2006-01-02"

// MaxSalesRangeDays bounds the number of rows DailySales builds.
const MaxSalesRangeDays = 366

var ErrRangeTooLarge = errors.New("date range exceeds 366 days")

// Source is the read side of the order store used for reporting.
type Source interface {
	AggregateStats(ctx context.Context) (models.OrderStats, error)
	OrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
}

// Service handles reporting over stored orders. Nothing is cached.
type Service struct {
	db       Source
	Location *time.Location
	Now      func() time.Time
}

// NewService creates a new analytics service
func NewService(db Source) *Service {
	return &Service{
		db:       db,
		Location: utils.CairoLocation(),
		Now:      time.Now,
	}
}

// DailySalesMetrics contains metrics for a single merchant-local day
type DailySalesMetrics struct {
	Date       string `json:"date"`
	Revenue    int    `json:"revenue"`
	OrderCount int    `json:"orderCount"`
}

// Statistics returns status counts and total revenue.
func (s *Service) Statistics(ctx context.Context) (models.OrderStats, error) {
	stats, err := s.db.AggregateStats(ctx)
	if err != nil {
		return models.OrderStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

// DailyReport summarises the orders created on the calendar day containing day.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (models.DailyReport, error) {
	from, to := utils.DayBounds(day, s.Location)
	orders, err := s.db.OrdersBetween(ctx, from, to)
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("orders for %s: %w", day.In(s.Location).Format(dateLayout), err)
	}

	report := models.DailyReport{
		Date:          from.In(s.Location).Format(dateLayout),
		ByPlatform:    map[string]int{},
		ByAccountType: map[string]int{},
		ByStatus:      map[string]int{},
	}
	for _, o := range orders {
		report.TotalOrders++
		report.TotalRevenue += o.Price
		report.ByPlatform[string(o.Platform)]++
		report.ByAccountType[string(o.AccountType)]++
		report.ByStatus[string(o.Status)]++
	}
	return report, nil
}

// Today is DailyReport for the current merchant-local day.
func (s *Service) Today(ctx context.Context) (models.DailyReport, error) {
	return s.DailyReport(ctx, s.Now())
}

// DailySales returns one row per local day in [from, to], oldest first.
// Days without orders are included with zero values.
func (s *Service) DailySales(ctx context.Context, from, to time.Time) ([]DailySalesMetrics, error) {
	start, _ := utils.DayBounds(from, s.Location)
	_, end := utils.DayBounds(to, s.Location)
	if !start.Before(end) {
		return nil, fmt.Errorf("invalid range %s..%s", from.Format(dateLayout), to.Format(dateLayout))
	}
	if calendarDays(from.In(s.Location), to.In(s.Location)) > MaxSalesRangeDays {
		return nil, ErrRangeTooLarge
	}

	orders, err := s.db.OrdersBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("orders between: %w", err)
	}

	var days []DailySalesMetrics
	index := map[string]int{}
	for d := start.In(s.Location); d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		index[key] = len(days)
		days = append(days, DailySalesMetrics{Date: key})
	}
	for _, o := range orders {
		i, ok := index[o.CreatedAt.In(s.Location).Format(dateLayout)]
		if !ok {
			continue
		}
		days[i].Revenue += o.Price
		days[i].OrderCount++
	}
	return days, nil
}

// calendarDays counts the dates from..to inclusive, ignoring DST shifts.
func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}

// ParseDay reads a YYYY-MM-DD date in the merchant timezone. An empty string means today.
func (s *Service) ParseDay(value string) (time.Time, error) {
	if value == "" {
		return s.Now().In(s.Location), nil
	}
	day, err := time.ParseInLocation(dateLayout, value, s.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}
