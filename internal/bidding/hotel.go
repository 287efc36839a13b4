package bidding

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/alejandrodnm/tacbot/internal/auction"
	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/forecast/hotel"
)

// HotelController bids on one hotel night for the packages that were
// assigned to it. The bid has two tiers: enough units at ask+1 to keep the
// hypothetical quantity won, and the intended units at a marked up estimate
// of the next price.
type HotelController struct {
	session *auction.Session
	inv     *domain.Inventory
	history *hotel.History
	cfg     HotelConfig

	// OnClosed runs after the auction closed and its rooms were booked.
	OnClosed func(domain.Good)

	ctx         context.Context
	started     bool
	unsubscribe func()

	pending  []*domain.Package
	minute   int
	lastSent domain.Bid
}

func NewHotelController(s *auction.Session, inv *domain.Inventory, h *hotel.History, cfg HotelConfig) *HotelController {
	c := &HotelController{
		session: s,
		inv:     inv,
		history: h,
		cfg:     cfg,
		ctx:     context.Background(),
	}
	c.unsubscribe = s.Subscribe(c.handle)
	return c
}

func (c *HotelController) Good() domain.Good { return c.session.Good() }
func (c *HotelController) Closed() bool      { return c.session.IsClosed() }
func (c *HotelController) Intentions() int   { return len(c.pending) }

func (c *HotelController) Start(ctx context.Context) {
	c.ctx = ctx
	c.started = true
	c.updateBid()
}

func (c *HotelController) Stop() {
	c.started = false
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// AddPackage records that p wants a room here.
func (c *HotelController) AddPackage(p *domain.Package) {
	c.pending = append(c.pending, p)
	c.inv.AddIntention(c.Good(), 1)
}

// Clear drops all intentions. The bid is not touched until Refresh.
func (c *HotelController) Clear() {
	c.inv.AddIntention(c.Good(), -len(c.pending))
	c.pending = nil
}

func (c *HotelController) Refresh() { c.updateBid() }

// Advance moves the controller to the minute containing tick.
func (c *HotelController) Advance(tick int) { c.minute = domain.MinuteOf(tick) }

// EstimatedPrice is the expected closing price from the price history.
func (c *HotelController) EstimatedPrice() float64 {
	return c.history.EstimatedPrice(c.Good())
}

// PurchaseProbability is lower for the middle nights, which are the most
// contested. A closed auction sells nothing more.
func (c *HotelController) PurchaseProbability() float64 {
	if c.Closed() {
		return 0
	}
	if d := c.Good().Day; d == 2 || d == 3 {
		return 0.9
	}
	return 0.95
}

func (c *HotelController) handle(ev domain.Event) {
	g := c.Good()
	switch ev.Kind {
	case domain.EventQuoteUpdated:
		c.minute = domain.MinuteOf(ev.Quote.Tick)
		c.history.Observe(g, c.minute, ev.Quote.AskPrice, ev.Quote.Closed)
		if !ev.Quote.Closed {
			c.updateBid()
		}
	case domain.EventBidAccepted, domain.EventBidRejected, domain.EventBidError:
		if ev.Kind != domain.EventBidAccepted {
			slog.Warn("hotel: bid refused", "good", g, "kind", ev.Kind, "code", ev.ErrCode)
			c.lastSent = nil
		}
		if ev.Retry {
			c.updateBid()
		}
	case domain.EventTransaction:
		c.won(ev.Quantity, ev.Price)
	case domain.EventClosed:
		c.history.Observe(g, c.minute, c.session.AskPrice(), true)
		c.history.Update()
		slog.Info("hotel: auction closed", "good", g, "held", c.inv.Held(g), "minute", c.minute)
		if c.OnClosed != nil {
			c.OnClosed(g)
		}
	}
}

func (c *HotelController) won(qty int, price float64) {
	if qty <= 0 {
		return
	}
	g := c.Good()
	c.inv.Won(g, qty)
	n := min(qty, len(c.pending))
	for _, p := range c.pending[:n] {
		if err := p.BookNight(g.Day, g.Grade()); err != nil {
			slog.Warn("hotel: book night", "good", g, "client", p.Client.ID, "err", err)
			continue
		}
		if err := c.inv.Allocate(g, 1); err != nil {
			slog.Error("hotel: allocate won room", "good", g, "err", err)
		}
	}
	c.inv.AddIntention(g, -n)
	c.pending = c.pending[n:]
	slog.Info("hotel: rooms won", "good", g, "qty", qty, "price", price)
}

func (c *HotelController) updateBid() {
	if !c.started || c.Closed() {
		return
	}
	g := c.Good()
	q, _ := c.session.Quote()
	ask := q.AskPrice
	intentions := len(c.pending)

	estNext := math.Max(c.history.EstimatedNextPrice(g), ask+c.cfg.MinRaise)
	proposed := estNext * c.cfg.Markup[min(c.minute, domain.HotelMinutes)]
	if proposed <= 0 {
		return
	}

	bid := domain.NewBid()
	switch {
	case ask < 1:
		if n := domain.Clients - intentions; n > 0 {
			bid.Add(n, c.cfg.HoldingPrice)
		}
	case intentions < q.HQW:
		bid.Add(q.HQW-intentions, ask+1)
	}
	if intentions > 0 {
		bid.Add(intentions, proposed)
	}

	if c.lastSent != nil && bid.Equal(c.lastSent) {
		return
	}
	if err := c.session.Replace(bid); err != nil {
		c.logBusy(err)
		return
	}
	if err := c.session.Submit(c.ctx); err != nil {
		c.logBusy(err)
		return
	}
	c.lastSent = bid
	slog.Debug("hotel: bid submitted", "good", g, "bid", bid, "minute", c.minute)
}

func (c *HotelController) logBusy(err error) {
	if errors.Is(err, domain.ErrBidBusy) {
		slog.Debug("hotel: session busy, will retry", "good", c.Good())
		return
	}
	slog.Warn("hotel: submit failed", "good", c.Good(), "err", err)
}
