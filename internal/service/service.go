package service

import (
	"context"
	"time"

	"stovelink/internal/models"
	"stovelink/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// EventLog exposes the coordinator's append-only log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.StoveEvent, error)
}

// LogFilter narrows event listings by time range, type and stove.
type LogFilter struct {
	From    time.Time // inclusive; zero means no lower bound
	To      time.Time // inclusive; zero means no upper bound
	Type    string    // "", "STATUS_CHANGE", "COMMAND_FAILED", "RESTART"
	StoveID string    // "" means all stoves
}

// Service aggregates the sub-services the HTTP layer depends on. Device
// reads and control mutations go straight to the coordinator, which owns
// that state exclusively.
type Service struct {
	Authorization
	EventLog
}

func NewService(repos *repository.Repository, signingKey string) *Service {
	return &Service{
		Authorization: NewAuthService(repos.Auth, signingKey),
		EventLog:      NewEventLogService(repos.Events),
	}
}
