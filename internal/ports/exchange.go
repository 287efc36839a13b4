package ports

import (
	"context"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Exchange is the market gateway the agent bids through.
type Exchange interface {
	// AskPrice returns the latest ask for a good, 0 when no quote has arrived.
	AskPrice(g domain.Good) float64

	// Quote returns the latest quote snapshot for a good.
	Quote(g domain.Good) (domain.Quote, bool)

	// SubmitBid sends one bid revision. Acceptance, rejection or errors come
	// back later as events carrying the same revision.
	SubmitBid(ctx context.Context, sub domain.BidSubmission) error
}
