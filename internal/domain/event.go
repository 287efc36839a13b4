package domain

import "github.com/google/uuid"

// EventKind tags the six exchange callbacks.
type EventKind uint8

const (
	EventQuoteUpdated EventKind = iota + 1
	EventBidAccepted
	EventBidRejected
	EventBidError
	EventTransaction
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventQuoteUpdated:
		return "quote"
	case EventBidAccepted:
		return "bid-accepted"
	case EventBidRejected:
		return "bid-rejected"
	case EventBidError:
		return "bid-error"
	case EventTransaction:
		return "transaction"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a single exchange notification for one auction.
type Event struct {
	Kind EventKind
	Good Good

	Quote    Quote     // EventQuoteUpdated
	Revision uuid.UUID // bid resolution events
	Quantity int       // EventTransaction: signed units, positive = bought
	Price    float64   // EventTransaction
	ErrCode  string    // EventBidError / EventBidRejected

	// Retry is set by the session on a resolution event when an edit was
	// refused while the revision was in flight. The subscriber should
	// rebuild and resubmit its bid.
	Retry bool
}

// Handler consumes events from an auction session.
type Handler func(Event)
