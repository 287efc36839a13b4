// Package auction wraps one exchange auction in a bid state machine that
// allows a single unconfirmed revision at a time.
package auction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/ports"
)

// State of a session's bid.
type State uint8

const (
	Idle State = iota
	Building
	AwaitingConfirmation
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case AwaitingConfirmation:
		return "awaiting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

type subscriber struct {
	id int
	h  domain.Handler
}

// Session tracks the quote and bid revisions of one good.
type Session struct {
	good     domain.Good
	exchange ports.Exchange

	state    State
	quote    domain.Quote
	hasQuote bool
	quotes   []domain.Quote

	active   domain.Bid // last bid the exchange confirmed
	working  domain.Bid // local edits
	inflight domain.Bid // copy of the outstanding revision
	revision uuid.UUID
	dirty    bool

	subs   []subscriber
	nextID int
}

// NewSession creates an idle session with empty bids.
func NewSession(g domain.Good, ex ports.Exchange) *Session {
	return &Session{
		good:     g,
		exchange: ex,
		active:   domain.NewBid(),
		working:  domain.NewBid(),
	}
}

func (s *Session) Good() domain.Good { return s.good }
func (s *Session) State() State      { return s.state }
func (s *Session) IsClosed() bool    { return s.state == Closed }

// Dirty reports whether an edit was refused while a revision was in flight.
func (s *Session) Dirty() bool { return s.dirty }

// Quote returns the latest quote received for the auction.
func (s *Session) Quote() (domain.Quote, bool) { return s.quote, s.hasQuote }

// AskPrice returns the latest ask, 0 before the first quote.
func (s *Session) AskPrice() float64 { return s.quote.AskPrice }

// Quotes returns the quote history in arrival order.
func (s *Session) Quotes() []domain.Quote {
	out := make([]domain.Quote, len(s.quotes))
	copy(out, s.quotes)
	return out
}

// Active returns a copy of the confirmed bid.
func (s *Session) Active() domain.Bid { return s.active.Clone() }

// Working returns a copy of the bid being edited.
func (s *Session) Working() domain.Bid { return s.working.Clone() }

// Subscribe registers h for every event of this auction.
func (s *Session) Subscribe(h domain.Handler) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, h: h})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// UnsubscribeAll drops every watcher.
func (s *Session) UnsubscribeAll() { s.subs = nil }

// canEdit moves Idle to Building. The first edit starts from the active bid.
func (s *Session) canEdit(op string) error {
	switch s.state {
	case Closed:
		return fmt.Errorf("auction.Session.%s: %s: %w", op, s.good, domain.ErrAuctionClosed)
	case AwaitingConfirmation:
		s.dirty = true
		return fmt.Errorf("auction.Session.%s: %s: %w", op, s.good, domain.ErrBidBusy)
	case Idle:
		s.working = s.active.Clone()
		s.state = Building
	}
	return nil
}

// Wipe clears the working bid.
func (s *Session) Wipe() error {
	if err := s.canEdit("Wipe"); err != nil {
		return err
	}
	s.working = domain.NewBid()
	return nil
}

// ModifyPoint adjusts the quantity at one price level of the working bid.
func (s *Session) ModifyPoint(dq int, price float64) error {
	if err := s.canEdit("ModifyPoint"); err != nil {
		return err
	}
	s.working.Add(dq, price)
	return nil
}

// Replace sets the whole working bid.
func (s *Session) Replace(b domain.Bid) error {
	if err := s.canEdit("Replace"); err != nil {
		return err
	}
	s.working = b.Clone()
	return nil
}

// Submit sends the working bid as a new revision.
func (s *Session) Submit(ctx context.Context) error {
	switch s.state {
	case Closed:
		return fmt.Errorf("auction.Session.Submit: %s: %w", s.good, domain.ErrAuctionClosed)
	case AwaitingConfirmation:
		s.dirty = true
		return fmt.Errorf("auction.Session.Submit: %s: %w", s.good, domain.ErrBidBusy)
	case Idle:
		s.working = s.active.Clone()
	}

	s.revision = uuid.New()
	s.inflight = s.working.Clone()
	s.state = AwaitingConfirmation

	err := s.exchange.SubmitBid(ctx, domain.BidSubmission{
		Revision: s.revision,
		Good:     s.good,
		Bid:      s.inflight.Clone(),
	})
	if err != nil {
		if s.state == AwaitingConfirmation {
			s.state = Building
			s.revision = uuid.Nil
			s.inflight = nil
		}
		return fmt.Errorf("auction.Session.Submit: %s: %w", s.good, err)
	}
	return nil
}

// Handle applies one exchange event and fans it out to subscribers.
func (s *Session) Handle(ev domain.Event) {
	if ev.Good != s.good || s.state == Closed {
		return
	}

	switch ev.Kind {
	case domain.EventQuoteUpdated:
		s.quote = ev.Quote
		s.hasQuote = true
		s.quotes = append(s.quotes, ev.Quote)

	case domain.EventBidAccepted, domain.EventBidRejected, domain.EventBidError:
		if s.state != AwaitingConfirmation || ev.Revision != s.revision {
			slog.Debug("auction: stale revision ignored", "good", s.good, "kind", ev.Kind, "revision", ev.Revision)
			return
		}
		if ev.Kind == domain.EventBidAccepted {
			s.active = s.inflight
		} else {
			slog.Debug("auction: revision refused", "good", s.good, "kind", ev.Kind, "code", ev.ErrCode)
		}
		s.working = s.active.Clone()
		s.inflight = nil
		s.revision = uuid.Nil
		s.state = Idle
		ev.Retry = s.dirty
		s.dirty = false

	case domain.EventTransaction:
		s.applyTransaction(ev.Quantity)

	case domain.EventClosed:
		s.state = Closed
		s.dirty = false
		slog.Debug("auction: closed", "good", s.good)

	default:
		return
	}

	for _, sub := range append([]subscriber(nil), s.subs...) {
		sub.h(ev)
	}
}

// applyTransaction removes filled units from every copy of the bid so a
// later resubmission does not buy them twice.
func (s *Session) applyTransaction(qty int) {
	reduce := func(b domain.Bid) {
		if b == nil {
			return
		}
		if qty > 0 {
			b.ReduceBuys(qty)
		} else {
			b.ReduceSells(-qty)
		}
	}
	reduce(s.active)
	reduce(s.working)
	reduce(s.inflight)
}
