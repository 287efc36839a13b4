package ports

import (
	"context"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Reporter presents the result of a finished game.
type Reporter interface {
	Report(ctx context.Context, summary domain.GameSummary) error
}
