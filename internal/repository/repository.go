package repository

import (
	"context"
	"database/sql"
	"time"

	"stovelink/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// StockRepo persists the per-stove pellet consumption baseline so a restart
// does not lose the estimated tank level.
type StockRepo interface {
	Save(ctx context.Context, ps models.PelletStock) error
	Load(ctx context.Context, stoveID string) (models.PelletStock, error)
}

// EventRepo is the append-only coordinator log with filtered access.
type EventRepo interface {
	Append(ctx context.Context, e models.StoveEvent) error
	List(ctx context.Context, from, to time.Time, typ, stoveID string) ([]models.StoveEvent, error)
}

type Repository struct {
	Stock  StockRepo
	Events EventRepo
	Auth   Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Stock:  NewStockSQLite(db),
		Events: NewEventSQLite(db),
		Auth:   NewUserRepository(db),
	}
}
