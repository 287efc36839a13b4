// Package sim is an in-process travel market used for dry runs and tests.
//
// Flight prices follow the drift process of the forecaster with a hidden
// drift per auction. Hotel asks are the sixteenth highest unit price among
// our bids and a crowd of opponents, and one hotel closes every minute.
// Entertainment asks wander around a fixed base and fill with a random
// counterparty. Submissions are acknowledged on the next Flush or Advance.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Config tunes the simulated market.
type Config struct {
	Seed uint64
	// TickDuration is the simulated time between ticks. It drives the
	// submission limiter, not the wall clock.
	TickDuration time.Duration
	// SubmitRate is the number of submissions accepted per simulated second.
	SubmitRate  float64
	SubmitBurst int
	// Opponents is the number of competing agents bidding on hotels.
	Opponents int
	// FunFillProb is the chance per tick that a crossing entertainment order
	// finds a counterparty.
	FunFillProb float64
	// Endowment is the number of entertainment tickets we start with.
	Endowment int
}

func DefaultConfig() Config {
	return Config{
		Seed:         1,
		TickDuration: 10 * time.Second,
		SubmitRate:   4,
		SubmitBurst:  40,
		Opponents:    7,
		FunFillProb:  0.5,
		Endowment:    12,
	}
}

// Trade is one fill recorded in the ledger.
type Trade struct {
	ID       uuid.UUID
	Good     domain.Good
	Quantity int // negative for sales
	Price    decimal.Decimal
	Tick     int
}

// Exchange implements ports.Exchange.
type Exchange struct {
	cfg     Config
	rng     *rand.Rand
	limiter *rate.Limiter
	now     time.Time

	tick int
	done bool

	flights map[domain.Good]*flightMarket
	hotels  map[domain.Good]*hotelMarket
	fun     map[domain.Good]*funMarket
	closing []domain.Good // hotel close order, one per minute

	bids     map[domain.Good]domain.Bid
	holdings map[domain.Good]int
	ledger   []Trade
	cash     decimal.Decimal

	queue  []domain.Event
	subs   map[int]domain.Handler
	nextID int
}

// New creates a market at tick 0. Call Open to publish the first quotes.
func New(cfg Config) *Exchange {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	start := time.Unix(0, 0).UTC()
	e := &Exchange{
		cfg:      cfg,
		rng:      rng,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SubmitRate), cfg.SubmitBurst),
		now:      start,
		flights:  make(map[domain.Good]*flightMarket),
		hotels:   make(map[domain.Good]*hotelMarket),
		fun:      make(map[domain.Good]*funMarket),
		bids:     make(map[domain.Good]domain.Bid),
		holdings: make(map[domain.Good]int),
		subs:     make(map[int]domain.Handler),
	}
	for _, g := range domain.AllGoods() {
		switch g.Kind {
		case domain.KindFlight:
			e.flights[g] = newFlightMarket(rng)
		case domain.KindHotel:
			e.hotels[g] = newHotelMarket(g)
			e.closing = append(e.closing, g)
		case domain.KindFun:
			e.fun[g] = newFunMarket(rng)
		}
	}
	rng.Shuffle(len(e.closing), func(i, j int) { e.closing[i], e.closing[j] = e.closing[j], e.closing[i] })

	funGoods := make([]domain.Good, 0, len(e.fun))
	for _, g := range domain.AllGoods() {
		if g.Kind == domain.KindFun {
			funGoods = append(funGoods, g)
		}
	}
	for range cfg.Endowment {
		e.holdings[funGoods[rng.IntN(len(funGoods))]]++
	}
	return e
}

// Subscribe registers h for every event.
func (e *Exchange) Subscribe(h domain.Handler) (unsubscribe func()) {
	e.nextID++
	id := e.nextID
	e.subs[id] = h
	return func() { delete(e.subs, id) }
}

func (e *Exchange) Tick() int  { return e.tick }
func (e *Exchange) Done() bool { return e.done }

// Endowment returns the entertainment tickets owned before trading.
func (e *Exchange) Endowment() map[domain.Good]int {
	out := make(map[domain.Good]int)
	for g, n := range e.holdings {
		if g.Kind == domain.KindFun && n > 0 {
			out[g] = n
		}
	}
	return out
}

// Ledger returns every fill so far.
func (e *Exchange) Ledger() []Trade { return append([]Trade(nil), e.ledger...) }

// Spend is the cash paid for goods net of sales.
func (e *Exchange) Spend() float64 { return e.cash.Neg().InexactFloat64() }

// Holdings returns how many units of g we own.
func (e *Exchange) Holdings(g domain.Good) int { return e.holdings[g] }

func (e *Exchange) AskPrice(g domain.Good) float64 {
	q, _ := e.Quote(g)
	return q.AskPrice
}

func (e *Exchange) Quote(g domain.Good) (domain.Quote, bool) {
	switch g.Kind {
	case domain.KindFlight:
		if m, ok := e.flights[g]; ok {
			return domain.Quote{Good: g, AskPrice: m.price, Tick: e.tick, Closed: e.done}, true
		}
	case domain.KindHotel:
		if m, ok := e.hotels[g]; ok {
			return domain.Quote{Good: g, AskPrice: m.ask, Tick: e.tick, HQW: m.hqw(e.bids[g]), Closed: m.closed}, true
		}
	case domain.KindFun:
		if m, ok := e.fun[g]; ok {
			return domain.Quote{Good: g, AskPrice: m.ask, BidPrice: m.bid(), Tick: e.tick, Closed: e.done}, true
		}
	}
	return domain.Quote{}, false
}

// SubmitBid queues the acknowledgement of sub. Throttled submissions and
// submissions on closed auctions are refused through events, not errors.
func (e *Exchange) SubmitBid(ctx context.Context, sub domain.BidSubmission) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sim.SubmitBid: %w", err)
	}
	if _, ok := e.Quote(sub.Good); !ok {
		return fmt.Errorf("sim.SubmitBid: %s: %w", sub.Good, domain.ErrInvalidGood)
	}

	refuse := func(kind domain.EventKind, code string) error {
		e.queue = append(e.queue, domain.Event{Kind: kind, Good: sub.Good, Revision: sub.Revision, ErrCode: code})
		return nil
	}
	switch {
	case e.closed(sub.Good):
		return refuse(domain.EventBidRejected, "closed")
	case !e.limiter.AllowN(e.now, 1):
		slog.Debug("sim: submission throttled", "good", sub.Good)
		return refuse(domain.EventBidError, "throttled")
	case sells(sub.Bid) > 0 && sub.Good.Kind != domain.KindFun:
		return refuse(domain.EventBidRejected, "sell not allowed")
	case sells(sub.Bid) > e.holdings[sub.Good]:
		return refuse(domain.EventBidRejected, "oversell")
	}

	e.bids[sub.Good] = sub.Bid.Clone()
	e.queue = append(e.queue, domain.Event{Kind: domain.EventBidAccepted, Good: sub.Good, Revision: sub.Revision})
	return nil
}

func sells(b domain.Bid) int {
	n := 0
	for _, q := range b {
		if q < 0 {
			n -= q
		}
	}
	return n
}

func (e *Exchange) closed(g domain.Good) bool {
	if e.done {
		return true
	}
	if m, ok := e.hotels[g]; ok {
		return m.closed
	}
	return false
}

// Open publishes the tick 0 quotes.
func (e *Exchange) Open() {
	for _, g := range domain.AllGoods() {
		e.emitQuote(g)
	}
	e.Flush()
}

// Advance moves the market one tick and delivers every resulting event.
// The tick after the last flight tick closes the game.
func (e *Exchange) Advance() {
	if e.done {
		return
	}
	e.Flush()
	e.tick++
	e.now = e.now.Add(e.cfg.TickDuration)

	if e.tick >= domain.FlightHorizon {
		e.closeAll()
		e.Flush()
		return
	}

	for _, g := range domain.AllGoods() {
		switch g.Kind {
		case domain.KindFlight:
			e.stepFlight(g)
		case domain.KindHotel:
			e.hotels[g].step(e.rng, e.cfg.Opponents, e.bids[g])
		case domain.KindFun:
			e.stepFun(g)
		}
	}
	if e.tick%domain.TicksPerMinute == 0 {
		if m := e.tick / domain.TicksPerMinute; m >= 1 && m <= len(e.closing) {
			e.closeHotel(e.closing[m-1])
		}
	}
	for _, g := range domain.AllGoods() {
		if g.Kind == domain.KindHotel && e.hotels[g].closed {
			continue
		}
		e.emitQuote(g)
	}
	e.Flush()
}

// Flush delivers queued events, including those queued by handlers while
// the flush runs.
func (e *Exchange) Flush() {
	for i := 0; len(e.queue) > 0; i++ {
		if i > 10_000 {
			slog.Warn("sim: event loop did not settle", "pending", len(e.queue))
			e.queue = nil
			return
		}
		ev := e.queue[0]
		e.queue = e.queue[1:]
		for _, id := range slices.Sorted(maps.Keys(e.subs)) {
			if h, ok := e.subs[id]; ok {
				h(ev)
			}
		}
	}
}

func (e *Exchange) emitQuote(g domain.Good) {
	q, _ := e.Quote(g)
	e.queue = append(e.queue, domain.Event{Kind: domain.EventQuoteUpdated, Good: g, Quote: q})
}

// fill records a trade and queues its transaction event.
func (e *Exchange) fill(g domain.Good, qty int, price float64) {
	if qty == 0 {
		return
	}
	p := decimal.NewFromFloat(price).Round(2)
	e.cash = e.cash.Sub(p.Mul(decimal.NewFromInt(int64(qty))))
	e.holdings[g] += qty
	e.ledger = append(e.ledger, Trade{ID: uuid.New(), Good: g, Quantity: qty, Price: p, Tick: e.tick})

	if b, ok := e.bids[g]; ok {
		if qty > 0 {
			b.ReduceBuys(qty)
		} else {
			b.ReduceSells(-qty)
		}
	}
	e.queue = append(e.queue, domain.Event{Kind: domain.EventTransaction, Good: g, Quantity: qty, Price: p.InexactFloat64()})
	slog.Debug("sim: fill", "good", g, "qty", qty, "price", p, "tick", e.tick)
}

func (e *Exchange) stepFlight(g domain.Good) {
	m := e.flights[g]
	m.step(e.rng, e.tick)
	qty := 0
	for _, pt := range e.bids[g].Points() {
		if pt.Quantity > 0 && pt.Price >= m.price {
			qty += pt.Quantity
		}
	}
	e.fill(g, qty, m.price)
}

func (e *Exchange) stepFun(g domain.Good) {
	m := e.fun[g]
	m.step(e.rng)
	var buy, sell bool
	for _, pt := range e.bids[g].Points() {
		if pt.Quantity > 0 && pt.Price >= m.ask {
			buy = true
		}
		if pt.Quantity < 0 && pt.Price <= m.bid() {
			sell = true
		}
	}
	if buy && e.rng.Float64() < e.cfg.FunFillProb {
		e.fill(g, 1, m.ask)
	}
	if sell && e.holdings[g] > 0 && e.rng.Float64() < e.cfg.FunFillProb {
		e.fill(g, -1, m.bid())
	}
}

func (e *Exchange) closeHotel(g domain.Good) {
	m := e.hotels[g]
	won := m.hqw(e.bids[g])
	e.fill(g, won, m.ask)
	m.closed = true
	delete(e.bids, g)

	q, _ := e.Quote(g)
	e.queue = append(e.queue,
		domain.Event{Kind: domain.EventQuoteUpdated, Good: g, Quote: q},
		domain.Event{Kind: domain.EventClosed, Good: g},
	)
	slog.Debug("sim: hotel closed", "good", g, "ask", m.ask, "won", won, "tick", e.tick)
}

func (e *Exchange) closeAll() {
	for _, g := range domain.AllGoods() {
		if m, ok := e.hotels[g]; ok {
			if m.closed {
				continue
			}
			e.closeHotel(g)
			continue
		}
		e.queue = append(e.queue, domain.Event{Kind: domain.EventClosed, Good: g})
	}
	e.bids = make(map[domain.Good]domain.Bid)
	e.done = true
}
