package bidding

import (
	"context"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/alejandrodnm/tacbot/internal/allocation"
	"github.com/alejandrodnm/tacbot/internal/auction"
	"github.com/alejandrodnm/tacbot/internal/domain"
)

type bidderState uint8

const (
	waitingToBid bidderState = iota
	bidding
	settled
	waitingToClear
	clearing
)

// funBidder is one single-shot order on an entertainment auction: a buyer of
// one ticket for a package, or a seller of a lot.
type funBidder struct {
	good      domain.Good
	remaining int // signed like the bid: >0 buy, <0 sell
	price     float64
	state     bidderState
	cancelled bool

	pkg *domain.Package // buyers only
	day int
}

func (b *funBidder) placed() bool {
	return b.state == bidding || b.state == settled || b.state == clearing || b.state == waitingToClear
}

// FunController trades entertainment tickets: it buys the tickets packages
// are missing and sells the ones no package uses.
type FunController struct {
	sessions map[domain.Good]*auction.Session
	inv      *domain.Inventory
	cfg      FunConfig

	ctx     context.Context
	started bool
	unsubs  []func()

	tickets []allocation.Ticket
	nextID  int
	bidders map[domain.Good][]*funBidder
}

// NewFunController watches every entertainment session in sessions.
func NewFunController(sessions []*auction.Session, inv *domain.Inventory, cfg FunConfig) *FunController {
	c := &FunController{
		sessions: make(map[domain.Good]*auction.Session, len(sessions)),
		inv:      inv,
		cfg:      cfg,
		ctx:      context.Background(),
		bidders:  make(map[domain.Good][]*funBidder),
	}
	for _, s := range sessions {
		if s.Good().Kind != domain.KindFun {
			continue
		}
		c.sessions[s.Good()] = s
		g := s.Good()
		c.unsubs = append(c.unsubs, s.Subscribe(func(ev domain.Event) { c.handle(g, ev) }))
	}
	return c
}

func (c *FunController) Start(ctx context.Context) {
	c.ctx = ctx
	c.started = true
	for g := range c.bidders {
		c.flush(g)
	}
}

func (c *FunController) Stop() {
	c.started = false
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
}

// AddTickets records n tickets of g owned outside of trading, like the
// initial endowment.
func (c *FunController) AddTickets(g domain.Good, n int) {
	for range n {
		c.addTicket(g)
	}
	c.inv.Won(g, n)
}

// Tickets returns the owned tickets.
func (c *FunController) Tickets() []allocation.Ticket { return slices.Clone(c.tickets) }

// Orders returns the signed quantity still wanted per good.
func (c *FunController) Orders() map[domain.Good]int {
	out := make(map[domain.Good]int)
	for g, bs := range c.bidders {
		for _, b := range bs {
			if !b.cancelled {
				out[g] += b.remaining
			}
		}
	}
	return out
}

func (c *FunController) EstimatedPrice(g domain.Good) float64 {
	if s, ok := c.sessions[g]; ok && s.AskPrice() > 0 {
		return s.AskPrice()
	}
	return c.cfg.DefaultPrice
}

func (c *FunController) PurchaseProbability(g domain.Good) float64 {
	if s, ok := c.sessions[g]; ok && s.IsClosed() {
		return 0
	}
	return 1
}

// Clear cancels every order. Orders already on the exchange are withdrawn by
// bidding the inverse quantity.
func (c *FunController) Clear() {
	for g, bs := range c.bidders {
		for _, b := range bs {
			if b.pkg != nil && b.remaining > 0 {
				b.pkg.ReleaseDay(b.day)
			}
			b.cancelled = true
			b.pkg = nil
		}
		c.normalize(g)
		c.flush(g)
	}
}

// Fulfil assigns owned tickets to packages, places buyers for the
// entertainment they still lack and sellers for the tickets left over.
func (c *FunController) Fulfil(packages []*domain.Package) allocation.FunResult {
	res := allocation.AllocateFun(packages, c.tickets)
	for _, a := range res.Assignments {
		if err := c.inv.Allocate(a.Ticket.Good, 1); err != nil {
			slog.Warn("fun: allocate ticket", "good", a.Ticket.Good, "err", err)
		}
	}

	touched := make(map[domain.Good]struct{})
	for _, p := range packages {
		if !p.Assigned() {
			continue
		}
		for _, t := range domain.FunTypes {
			if _, held := p.FunDay(t); held {
				continue
			}
			price := float64(p.Client.Premium(t)) * (1 - c.cfg.ProfitFactor)
			if price <= 0 {
				continue
			}
			for day := p.Arrival; day < p.Departure; day++ {
				g, err := domain.EntertainmentGood(day, t)
				if err != nil || c.PurchaseProbability(g) == 0 || !p.ReserveDay(day) {
					continue
				}
				c.bidders[g] = append(c.bidders[g], &funBidder{good: g, remaining: 1, price: price, pkg: p, day: day})
				touched[g] = struct{}{}
				break
			}
		}
	}

	for _, lot := range res.Unsold {
		if c.PurchaseProbability(lot.Good) == 0 {
			continue
		}
		c.bidders[lot.Good] = append(c.bidders[lot.Good], &funBidder{
			good:      lot.Good,
			remaining: -len(lot.Tickets),
			price:     c.cfg.SellPrice,
		})
		touched[lot.Good] = struct{}{}
	}

	for g := range touched {
		c.flush(g)
	}
	return res
}

func (c *FunController) handle(g domain.Good, ev domain.Event) {
	switch ev.Kind {
	case domain.EventBidAccepted:
		for _, b := range c.bidders[g] {
			switch b.state {
			case bidding:
				b.state = settled
			case clearing:
				b.remaining = 0
			}
		}
		c.normalize(g)
		c.flush(g)
	case domain.EventBidRejected, domain.EventBidError:
		slog.Warn("fun: bid refused", "good", g, "kind", ev.Kind, "code", ev.ErrCode)
		for _, b := range c.bidders[g] {
			switch b.state {
			case bidding:
				b.state = waitingToBid
			case clearing:
				b.state = waitingToClear
			}
		}
		c.normalize(g)
		c.flush(g)
	case domain.EventTransaction:
		if ev.Quantity > 0 {
			c.bought(g, ev.Quantity)
		} else {
			c.sold(g, -ev.Quantity)
		}
		c.normalize(g)
	case domain.EventClosed:
		for _, b := range c.bidders[g] {
			if b.pkg != nil && b.remaining > 0 {
				b.pkg.ReleaseDay(b.day)
			}
		}
		delete(c.bidders, g)
	}
}

func (c *FunController) bought(g domain.Good, qty int) {
	c.inv.Won(g, qty)
	for range qty {
		tk := c.addTicket(g)
		b, ok := lo.Find(c.bidders[g], func(b *funBidder) bool { return b.remaining > 0 && b.placed() })
		if !ok {
			slog.Info("fun: ticket bought into stock", "good", g, "ticket", tk.ID)
			continue
		}
		b.remaining--
		if b.pkg == nil {
			continue
		}
		if err := b.pkg.SetFun(g.FunType(), b.day); err != nil {
			slog.Warn("fun: assign bought ticket", "good", g, "client", b.pkg.Client.ID, "err", err)
			continue
		}
		if err := c.inv.Allocate(g, 1); err != nil {
			slog.Warn("fun: allocate bought ticket", "good", g, "err", err)
		}
		slog.Info("fun: ticket bought", "good", g, "client", b.pkg.Client.ID)
	}
}

func (c *FunController) sold(g domain.Good, qty int) {
	c.inv.Won(g, -qty)
	for range qty {
		if b, ok := lo.Find(c.bidders[g], func(b *funBidder) bool { return b.remaining < 0 && b.placed() }); ok {
			b.remaining++
		}
		i := slices.IndexFunc(c.tickets, func(t allocation.Ticket) bool { return t.Good == g })
		if i < 0 {
			slog.Error("fun: sold a ticket we do not own", "good", g)
			continue
		}
		c.tickets = slices.Delete(c.tickets, i, i+1)
	}
	slog.Info("fun: tickets sold", "good", g, "qty", qty)
}

func (c *FunController) addTicket(g domain.Good) allocation.Ticket {
	c.nextID++
	tk := allocation.Ticket{ID: c.nextID, Good: g}
	c.tickets = append(c.tickets, tk)
	return tk
}

// normalize turns cancellations into clear or drop requests and removes
// finished bidders.
func (c *FunController) normalize(g domain.Good) {
	kept := c.bidders[g][:0]
	for _, b := range c.bidders[g] {
		if b.cancelled {
			switch b.state {
			case waitingToBid:
				continue
			case settled:
				b.state = waitingToClear
			}
		}
		if b.remaining == 0 {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		delete(c.bidders, g)
		return
	}
	c.bidders[g] = kept
}

// flush sends every waiting order of g in one revision. Orders stay waiting
// while the session is busy and go out on the next resolution.
func (c *FunController) flush(g domain.Good) {
	s, ok := c.sessions[g]
	if !ok || !c.started || s.IsClosed() || s.State() == auction.AwaitingConfirmation {
		return
	}
	var moved []*funBidder
	for _, b := range c.bidders[g] {
		var err error
		switch b.state {
		case waitingToBid:
			if err = s.ModifyPoint(b.remaining, b.price); err == nil {
				b.state = bidding
			}
		case waitingToClear:
			if err = s.ModifyPoint(-b.remaining, b.price); err == nil {
				b.state = clearing
			}
		default:
			continue
		}
		if err != nil {
			slog.Warn("fun: modify bid", "good", g, "err", err)
			break
		}
		moved = append(moved, b)
	}
	if len(moved) == 0 {
		return
	}
	if err := s.Submit(c.ctx); err != nil {
		slog.Warn("fun: submit failed", "good", g, "err", err)
		if rerr := s.Replace(s.Active()); rerr != nil {
			slog.Warn("fun: reset working bid", "good", g, "err", rerr)
		}
		for _, b := range moved {
			if b.state == bidding {
				b.state = waitingToBid
			} else {
				b.state = waitingToClear
			}
		}
		return
	}
	slog.Debug("fun: bid submitted", "good", g, "orders", len(moved), "bid", s.Working())
}
