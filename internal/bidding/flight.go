package bidding

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/alejandrodnm/tacbot/internal/auction"
	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/forecast/flight"
)

// FlightController buys the tickets of one flight auction for the packages
// queued on it.
type FlightController struct {
	session *auction.Session
	inv     *domain.Inventory
	model   *flight.Model
	cfg     FlightConfig

	ctx         context.Context
	started     bool
	unsubscribe func()

	pending   []*domain.Package
	tick      int
	dirty     bool
	lastQty   int
	lastPrice float64
}

// NewFlightController watches s and feeds its quotes to a fresh model.
func NewFlightController(s *auction.Session, inv *domain.Inventory, cfg FlightConfig) *FlightController {
	c := &FlightController{
		session: s,
		inv:     inv,
		model:   flight.NewModel(),
		cfg:     cfg,
		ctx:     context.Background(),
	}
	c.unsubscribe = s.Subscribe(c.handle)
	return c
}

func (c *FlightController) Good() domain.Good    { return c.session.Good() }
func (c *FlightController) Model() *flight.Model { return c.model }
func (c *FlightController) Pending() int         { return len(c.pending) }

// Start enables bidding. ctx is used for every submission until Stop.
func (c *FlightController) Start(ctx context.Context) {
	c.ctx = ctx
	c.started = true
	c.refresh()
}

// Stop deregisters from the session and stops bidding.
func (c *FlightController) Stop() {
	c.started = false
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// AddLeg queues a package that needs a ticket from this auction.
func (c *FlightController) AddLeg(p *domain.Package) {
	c.pending = append(c.pending, p)
	c.inv.AddIntention(c.Good(), 1)
}

// Clear drops every queued leg and withdraws the bid.
func (c *FlightController) Clear() {
	c.inv.AddIntention(c.Good(), -len(c.pending))
	c.pending = nil
	c.refresh()
}

// Refresh re-evaluates the bid after legs were added.
func (c *FlightController) Refresh() { c.refresh() }

// Advance moves the controller's clock.
func (c *FlightController) Advance(tick int) { c.tick = tick }

// EstimatedPrice is the predicted minimum price for the rest of the game.
func (c *FlightController) EstimatedPrice() float64 {
	return c.model.PredictMinimumPrice(c.tick)
}

// PurchaseProbability of a flight ticket. Flights always sell.
func (c *FlightController) PurchaseProbability() float64 { return 1 }

func (c *FlightController) handle(ev domain.Event) {
	switch ev.Kind {
	case domain.EventQuoteUpdated:
		c.tick = ev.Quote.Tick
		if err := c.model.AddQuote(ev.Quote.AskPrice, ev.Quote.Tick); err != nil {
			slog.Debug("flight: quote skipped", "good", c.Good(), "err", err)
		}
		if c.cfg.RefreshEvery <= 1 || c.tick%c.cfg.RefreshEvery == 0 {
			c.refresh()
		}
	case domain.EventBidAccepted:
		if ev.Retry || c.dirty {
			c.refresh()
		}
	case domain.EventBidRejected, domain.EventBidError:
		slog.Warn("flight: bid refused", "good", c.Good(), "kind", ev.Kind, "code", ev.ErrCode)
		// Force the next refresh through the duplicate guard.
		c.lastQty = -1
		if ev.Retry || c.dirty {
			c.refresh()
		}
	case domain.EventTransaction:
		c.won(ev.Quantity, ev.Price)
		c.refresh()
	}
}

func (c *FlightController) won(qty int, price float64) {
	if qty <= 0 {
		return
	}
	g := c.Good()
	c.inv.Won(g, qty)
	n := min(qty, len(c.pending))
	for _, p := range c.pending[:n] {
		p.SetFlight(g.IsArrival())
		if err := c.inv.Allocate(g, 1); err != nil {
			slog.Error("flight: allocate won ticket", "good", g, "err", err)
		}
		c.inv.AddIntention(g, -1)
	}
	c.pending = c.pending[n:]
	c.lastQty -= n
	slog.Info("flight: tickets won", "good", g, "qty", qty, "price", price, "pending", len(c.pending))
}

func (c *FlightController) refresh() {
	if !c.started || c.session.IsClosed() {
		return
	}
	qty := len(c.pending)
	price := c.price()
	ask := c.session.AskPrice()

	// A still-valid bid for the same quantity would only risk a second fill.
	if qty == c.lastQty && c.lastPrice > ask {
		return
	}
	if qty == 0 && c.lastQty == 0 && len(c.session.Active()) == 0 {
		return
	}

	c.dirty = true
	bid := domain.NewBid()
	if qty > 0 {
		bid.Add(qty, price)
	}
	if err := c.session.Replace(bid); err != nil {
		c.logBusy(err)
		return
	}
	if err := c.session.Submit(c.ctx); err != nil {
		c.logBusy(err)
		return
	}
	c.lastQty, c.lastPrice = qty, price
	c.dirty = false
	slog.Debug("flight: bid submitted", "good", c.Good(), "qty", qty, "price", price, "tick", c.tick)
}

func (c *FlightController) logBusy(err error) {
	if errors.Is(err, domain.ErrBidBusy) {
		slog.Debug("flight: session busy, will retry", "good", c.Good())
		return
	}
	slog.Warn("flight: submit failed", "good", c.Good(), "err", err)
}

// price picks the bid that minimises expected cost. When the forecast is
// right (weight = confidence) a bid at p fills with probability
// cdf[p] and otherwise we end up paying PriceMax; when it is wrong the fill
// chance is the linear position of p between PriceMin and the ask, and a
// miss costs the ask.
func (c *FlightController) price() float64 {
	ask := c.session.AskPrice()
	if ask < flight.PriceMin {
		return flight.PriceMin
	}
	if c.tick >= flight.Horizon-c.cfg.PanicTicks {
		return ask + c.cfg.PanicIncrement
	}

	dist := c.model.PriceCumulativeDist(c.tick)
	conf := c.model.Confidence()

	best, bestCost := flight.PriceMin, math.MaxFloat64
	for p := int(flight.PriceMin); p < int(flight.PriceMax); p++ {
		price := float64(p)
		withConf := dist[p]
		naive := 1.0
		if ask > flight.PriceMin {
			naive = math.Min(1, (price-flight.PriceMin)/(ask-flight.PriceMin))
		}
		cost := conf*withConf*price +
			conf*(1-withConf)*flight.PriceMax +
			(1-conf)*naive*price +
			(1-conf)*(1-naive)*ask
		if cost < bestCost {
			best, bestCost = price, cost
		}
	}
	return best
}
