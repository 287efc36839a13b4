package domain

import "errors"

var (
	// ErrBidBusy is returned when a bid is mutated while a previous revision is
	// still waiting for the exchange. Callers retry once the revision resolves.
	ErrBidBusy = errors.New("bid busy: previous revision unconfirmed")

	// ErrAuctionClosed is returned for any mutation after the auction closed.
	ErrAuctionClosed = errors.New("auction closed")

	// ErrInfeasiblePlan means no assignment satisfies the current inventory
	// and closed-auction constraints.
	ErrInfeasiblePlan = errors.New("infeasible plan")

	// ErrInvalidGood is returned when constructing a Good out of range.
	ErrInvalidGood = errors.New("invalid good")

	// ErrForecastRange is returned for quotes outside the expected band.
	ErrForecastRange = errors.New("quote outside forecast range")
)
