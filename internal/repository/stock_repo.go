package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stovelink/internal/models"
)

type StockSQLite struct {
	db *sql.DB
}

func NewStockSQLite(db *sql.DB) *StockSQLite {
	return &StockSQLite{db: db}
}

var _ StockRepo = (*StockSQLite)(nil)

const (
	upsertStockSQL = `
		INSERT INTO pellet_stock (stove_id, capacity_kg, stock_kg, baseline_counter, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(stove_id) DO UPDATE SET
			capacity_kg=excluded.capacity_kg,
			stock_kg=excluded.stock_kg,
			baseline_counter=excluded.baseline_counter,
			updated_at=excluded.updated_at
	`

	selectStockSQL = `
		SELECT stove_id, capacity_kg, stock_kg, baseline_counter, updated_at
		FROM pellet_stock WHERE stove_id=?
	`
)

// Save upserts the stock row for one stove.
func (r *StockSQLite) Save(ctx context.Context, ps models.PelletStock) error {
	tsUTC := ps.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	var baseline sql.NullFloat64
	if ps.BaselineCounter != nil {
		baseline = sql.NullFloat64{Float64: *ps.BaselineCounter, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, upsertStockSQL,
		ps.StoveID,
		ps.CapacityKg,
		ps.StockKg,
		baseline,
		tsUTC,
	)
	return err
}

// Load fetches the stock row for one stove. A missing row is not an error:
// the zero value (empty StoveID) is returned instead.
func (r *StockSQLite) Load(ctx context.Context, stoveID string) (models.PelletStock, error) {
	row := r.db.QueryRowContext(ctx, selectStockSQL, stoveID)

	var ps models.PelletStock
	var baseline sql.NullFloat64
	if err := row.Scan(
		&ps.StoveID,
		&ps.CapacityKg,
		&ps.StockKg,
		&baseline,
		&ps.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PelletStock{}, nil
		}
		return models.PelletStock{}, err
	}

	if baseline.Valid {
		v := baseline.Float64
		ps.BaselineCounter = &v
	}
	ps.UpdatedAt = ps.UpdatedAt.UTC()

	return ps, nil
}
