package ports

import (
	"context"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// HistoryStore persists hotel price curves across games.
type HistoryStore interface {
	// Load returns every completed game, oldest first.
	Load(ctx context.Context) ([]domain.GameRecord, error)

	// Checkpoint stores the in-progress game without marking it complete.
	Checkpoint(ctx context.Context, rec domain.GameRecord) error

	// Save stores the game and marks it complete.
	Save(ctx context.Context, rec domain.GameRecord) error

	// Discard drops a game that should not feed future forecasts.
	Discard(ctx context.Context, id string) error

	// Close releases the underlying database.
	Close() error
}
