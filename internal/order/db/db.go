package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-storefront/internal/models"
	"ms-storefront/internal/order"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// LastOrderKey is the slot overwritten on every successful save.
const LastOrderKey = "lastOrder"

type DB struct {
	Bun *bun.DB
}

// IsPostgres reports whether dsn selects the postgres backend.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open picks postgres for postgres:// DSNs and sqlite for everything else.
func Open(dsn string) (*bun.DB, error) {
	if IsPostgres(dsn) {
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates the order tables if they are missing.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, model := range []interface{}{
		(*models.Order)(nil),
		(*models.OrderSlot)(nil),
		(*models.NotificationIntent)(nil),
	} {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ---------------- ORDERS ----------------

// SaveOrder appends the order and overwrites the last-order slot in one transaction.
func (d *DB) SaveOrder(ctx context.Context, o models.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode last order: %w", err)
	}

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&o).Exec(ctx); err != nil {
			return err
		}

		slot := models.OrderSlot{Key: LastOrderKey, Payload: string(payload), UpdatedAt: o.CreatedAt}
		_, err := tx.NewInsert().
			Model(&slot).
			On("CONFLICT (slot_key) DO UPDATE").
			Set("payload = EXCLUDED.payload").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
}

// GetOrderByID → fetch one order by its ID
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := d.Bun.NewSelect().
		Model(&o).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus sets status and lastUpdated. The last-order slot is left as saved.
func (d *DB) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Set("last_updated = ?", at).
		Where("order_id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// ListOrders returns every order in insertion order.
func (d *DB) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := d.Bun.NewSelect().
		Model(&orders).
		Order("created_at ASC", "order_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// RecentOrders returns up to n orders, newest first.
func (d *DB) RecentOrders(ctx context.Context, n int) ([]models.Order, error) {
	orders := []models.Order{}
	err := d.Bun.NewSelect().
		Model(&orders).
		Order("created_at DESC", "order_id DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// OrdersBetween returns orders created in [from, to).
func (d *DB) OrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	orders := []models.Order{}
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// LastOrder decodes the last-order slot.
func (d *DB) LastOrder(ctx context.Context) (*models.Order, error) {
	var slot models.OrderSlot
	err := d.Bun.NewSelect().
		Model(&slot).
		Where("slot_key = ?", LastOrderKey).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	var o models.Order
	if err := json.Unmarshal([]byte(slot.Payload), &o); err != nil {
		return nil, fmt.Errorf("decode last order: %w", err)
	}
	return &o, nil
}

type statusRow struct {
	Status  models.OrderStatus `bun:"status"`
	Count   int                `bun:"count"`
	Revenue int                `bun:"revenue"`
}

// AggregateStats counts orders per status. Revenue sums every order regardless of status.
func (d *DB) AggregateStats(ctx context.Context) (models.OrderStats, error) {
	var rows []statusRow
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(price), 0) AS revenue").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return models.OrderStats{}, err
	}

	var stats models.OrderStats
	for _, row := range rows {
		stats.Total += row.Count
		stats.TotalRevenue += row.Revenue
		switch row.Status {
		case models.StatusPending:
			stats.Pending = row.Count
		case models.StatusConfirmed:
			stats.Confirmed = row.Count
		case models.StatusDelivered:
			stats.Delivered = row.Count
		case models.StatusCancelled:
			stats.Cancelled = row.Count
		}
	}
	return stats, nil
}
