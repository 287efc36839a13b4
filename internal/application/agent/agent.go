// Package agent runs one game: it owns the auction sessions, the
// forecasters and the bidding controllers, and re-plans the client packages
// whenever the market makes the current plan impossible.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/alejandrodnm/tacbot/internal/allocation"
	"github.com/alejandrodnm/tacbot/internal/auction"
	"github.com/alejandrodnm/tacbot/internal/bidding"
	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/forecast/hotel"
	"github.com/alejandrodnm/tacbot/internal/ports"
)

const noBlocking = -1

// Config contains the agent configuration.
type Config struct {
	// LateStartTick is the last tick at which joining still yields a price
	// history worth keeping.
	LateStartTick int
	Flight        bidding.FlightConfig
	Hotel         bidding.HotelConfig
	Fun           bidding.FunConfig
}

func DefaultConfig() Config {
	return Config{
		LateStartTick: 5,
		Flight:        bidding.DefaultFlightConfig(),
		Hotel:         bidding.DefaultHotelConfig(),
		Fun:           bidding.DefaultFunConfig(),
	}
}

// GameStart describes the game being joined.
type GameStart struct {
	ID        string // generated when empty
	StartedAt time.Time
	Tick      int // tick at which the agent joins
	Clients   []domain.Client
	Endowment map[domain.Good]int
}

// Agent plays one game. It is not safe for concurrent use: every method,
// including Handle, must run on the same goroutine.
type Agent struct {
	cfg     Config
	history *hotel.History
	inv     *domain.Inventory

	goods    []domain.Good
	sessions map[domain.Good]*auction.Session
	flights  map[domain.Good]*bidding.FlightController
	hotels   map[domain.Good]*bidding.HotelController
	fun      *bidding.FunController

	ctx      context.Context
	game     GameStart
	started  bool
	tick     int
	minute   int
	packages []*domain.Package

	spend        float64
	replans      int
	lastBlocking int
	err          error
}

// New builds an agent trading on ex. Completed games are loaded from store.
func New(ctx context.Context, cfg Config, ex ports.Exchange, store ports.HistoryStore) (*Agent, error) {
	hist, err := hotel.NewHistory(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("agent.New: %w", err)
	}

	a := &Agent{
		cfg:          cfg,
		history:      hist,
		inv:          domain.NewInventory(),
		goods:        domain.AllGoods(),
		sessions:     make(map[domain.Good]*auction.Session),
		flights:      make(map[domain.Good]*bidding.FlightController),
		hotels:       make(map[domain.Good]*bidding.HotelController),
		ctx:          ctx,
		lastBlocking: noBlocking,
	}

	var funSessions []*auction.Session
	for _, g := range a.goods {
		s := auction.NewSession(g, ex)
		a.sessions[g] = s
		switch g.Kind {
		case domain.KindFlight:
			a.flights[g] = bidding.NewFlightController(s, a.inv, cfg.Flight)
		case domain.KindHotel:
			h := bidding.NewHotelController(s, a.inv, hist, cfg.Hotel)
			h.OnClosed = a.onHotelClosed
			a.hotels[g] = h
		case domain.KindFun:
			funSessions = append(funSessions, s)
		}
	}
	a.fun = bidding.NewFunController(funSessions, a.inv, cfg.Fun)
	return a, nil
}

// Start plans the packages of gs and starts bidding.
func (a *Agent) Start(ctx context.Context, gs GameStart) error {
	if gs.ID == "" {
		gs.ID = uuid.NewString()
	}
	a.ctx = ctx
	a.game = gs
	a.tick = gs.Tick
	a.minute = domain.MinuteOf(gs.Tick)

	a.history.StartGame(gs.ID, gs.StartedAt)
	if gs.Tick > a.cfg.LateStartTick {
		a.history.MarkDirty(fmt.Sprintf("joined at tick %d", gs.Tick))
	}
	a.history.Update()

	for _, g := range a.goods {
		if n := gs.Endowment[g]; n > 0 && g.Kind == domain.KindFun {
			a.fun.AddTickets(g, n)
		}
	}
	for _, g := range a.goods {
		switch g.Kind {
		case domain.KindFlight:
			a.flights[g].Advance(gs.Tick)
		case domain.KindHotel:
			a.hotels[g].Advance(gs.Tick)
		}
	}

	if err := a.Replan(ctx); err != nil {
		return fmt.Errorf("agent.Start: %w", err)
	}

	for _, g := range a.goods {
		switch g.Kind {
		case domain.KindFlight:
			a.flights[g].Start(ctx)
		case domain.KindHotel:
			a.hotels[g].Start(ctx)
		}
	}
	a.fun.Start(ctx)
	a.started = true

	slog.Info("agent: game started",
		"game", gs.ID,
		"tick", gs.Tick,
		"clients", len(gs.Clients),
		"planned", len(a.assigned()),
	)
	return nil
}

// Handle routes one exchange event to its auction session.
func (a *Agent) Handle(ev domain.Event) {
	s, ok := a.sessions[ev.Good]
	if !ok {
		slog.Debug("agent: event for unknown good", "good", ev.Good, "kind", ev.Kind)
		return
	}
	if ev.Kind == domain.EventTransaction && !s.IsClosed() {
		a.spend += float64(ev.Quantity) * ev.Price
	}
	s.Handle(ev)
}

// Advance moves every controller to tick. On a new minute the hotel
// estimates are refreshed and the game in progress is checkpointed.
func (a *Agent) Advance(tick int) {
	a.tick = tick
	for _, g := range a.goods {
		switch g.Kind {
		case domain.KindFlight:
			a.flights[g].Advance(tick)
		case domain.KindHotel:
			a.hotels[g].Advance(tick)
		}
	}
	if m := domain.MinuteOf(tick); m != a.minute {
		a.minute = m
		a.history.Update()
		if err := a.history.Checkpoint(a.ctx); err != nil {
			slog.Warn("agent: checkpoint failed", "err", err)
		}
	}
}

// Replan rebuilds every package from the current inventory and estimates.
// An infeasible hotel plan is retried once; when the same client blocks
// twice in a row the error wraps domain.ErrInfeasiblePlan.
func (a *Agent) Replan(ctx context.Context) error {
	a.ctx = ctx
	return a.replanWith(a.plan)
}

func (a *Agent) replanWith(plan func() (int, error)) error {
	for attempt := 0; ; attempt++ {
		if a.started || attempt > 0 {
			a.replans++
		}
		blocking, err := plan()
		if err == nil {
			a.lastBlocking = noBlocking
			return nil
		}
		if !errors.Is(err, domain.ErrInfeasiblePlan) {
			return fmt.Errorf("agent.Replan: %w", err)
		}
		if blocking == a.lastBlocking || attempt >= domain.Clients {
			a.lastBlocking = noBlocking
			return fmt.Errorf("agent.Replan: client %d blocked twice: %w", blocking, err)
		}
		slog.Warn("agent: plan infeasible, replanning", "client", blocking)
		a.lastBlocking = blocking
	}
}

// Stop withdraws every watcher, stores or discards the price history and
// summarises the game. The error joins any planning failure seen during the
// game with the history write.
func (a *Agent) Stop(ctx context.Context) (domain.GameSummary, error) {
	for _, g := range a.goods {
		switch g.Kind {
		case domain.KindFlight:
			a.flights[g].Stop()
		case domain.KindHotel:
			a.hotels[g].Stop()
		}
		a.sessions[g].UnsubscribeAll()
	}
	a.fun.Stop()
	a.started = false

	var saveErr error
	if err := a.history.Save(ctx); err != nil {
		saveErr = fmt.Errorf("agent.Stop: %w", err)
	}

	summary := domain.GameSummary{
		GameID:  a.game.ID,
		Spend:   a.spend,
		Replans: a.replans,
	}
	for _, p := range a.packages {
		r := domain.ResultOf(p)
		summary.Clients = append(summary.Clients, r)
		summary.Utility += r.Utility
	}
	slog.Info("agent: game stopped",
		"game", a.game.ID,
		"utility", summary.Utility,
		"spend", summary.Spend,
		"score", summary.Score(),
		"replans", summary.Replans,
	)
	return summary, errors.Join(a.err, saveErr)
}

// Err returns the first planning failure seen while handling events.
func (a *Agent) Err() error { return a.err }

// Packages returns the current plan.
func (a *Agent) Packages() []*domain.Package { return a.packages }

// Inventory exposes the agent's holdings.
func (a *Agent) Inventory() *domain.Inventory { return a.inv }

// EstimatedPrice implements allocation.Estimator.
func (a *Agent) EstimatedPrice(g domain.Good) float64 {
	switch g.Kind {
	case domain.KindFlight:
		if c, ok := a.flights[g]; ok {
			return c.EstimatedPrice()
		}
	case domain.KindHotel:
		if c, ok := a.hotels[g]; ok {
			return c.EstimatedPrice()
		}
	case domain.KindFun:
		return a.fun.EstimatedPrice(g)
	}
	return 0
}

// PurchaseProbability implements allocation.Estimator.
func (a *Agent) PurchaseProbability(g domain.Good) float64 {
	switch g.Kind {
	case domain.KindFlight:
		if c, ok := a.flights[g]; ok {
			return c.PurchaseProbability()
		}
	case domain.KindHotel:
		if c, ok := a.hotels[g]; ok {
			return c.PurchaseProbability()
		}
	case domain.KindFun:
		return a.fun.PurchaseProbability(g)
	}
	return 0
}

func (a *Agent) assigned() []*domain.Package {
	return lo.Filter(a.packages, func(p *domain.Package, _ int) bool { return p.Assigned() })
}

// plan clears all intentions, allocates packages, then derives flight,
// hotel and entertainment intentions from them.
func (a *Agent) plan() (int, error) {
	a.inv.ResetIntentions()
	a.inv.ResetAllocations()
	for _, g := range a.goods {
		switch g.Kind {
		case domain.KindFlight:
			a.flights[g].Clear()
		case domain.KindHotel:
			a.hotels[g].Clear()
		}
	}
	a.fun.Clear()

	p := allocation.AllocatePackages(a.game.Clients, a, a.inv.Stock())
	a.packages = p.Packages
	assigned := a.assigned()

	for _, pkg := range assigned {
		for _, arrival := range []bool{true, false} {
			day := pkg.Departure
			if arrival {
				day = pkg.Arrival
			}
			g, err := domain.FlightGood(day, arrival)
			if err != nil {
				return noBlocking, fmt.Errorf("agent.plan: client %d: %w", pkg.Client.ID, err)
			}
			if a.inv.Unused(g) > 0 {
				if err := a.inv.Allocate(g, 1); err != nil {
					return noBlocking, fmt.Errorf("agent.plan: %w", err)
				}
				pkg.SetFlight(arrival)
				continue
			}
			a.flights[g].AddLeg(pkg)
		}
	}

	if blocking, err := a.fulfilHotels(assigned); err != nil {
		return blocking, err
	}
	a.fun.Fulfil(assigned)

	for _, g := range a.goods {
		if g.Kind == domain.KindFlight {
			a.flights[g].Refresh()
		}
	}
	slog.Debug("agent: plan ready", "planned", len(assigned), "tick", a.tick)
	return noBlocking, nil
}

// fulfilHotels chooses the grade of every package and turns it into hotel
// intentions. Nights of closed auctions are taken from held rooms. It returns
// the blocking client when no assignment fits the closed auctions.
func (a *Agent) fulfilHotels(packages []*domain.Package) (int, error) {
	slots := make(map[domain.Good]allocation.Slot, 2*domain.Nights)
	for _, g := range domain.HotelGoods() {
		// Every held room belongs to one of packages.
		slots[g] = allocation.Slot{
			Closed: a.hotels[g].Closed(),
			Stock:  a.inv.Held(g),
			Price:  a.history.EstimatedPrice(g),
		}
	}
	stays := make([]allocation.Stay, 0, len(packages))
	for _, p := range packages {
		stays = append(stays, allocation.Stay{Arrival: p.Arrival, Departure: p.Departure, HotelPremium: p.Client.HotelPremium})
	}

	st := allocation.SearchHotels(stays, slots)
	if !st.Feasible {
		id := packages[st.Blocking].Client.ID
		return id, fmt.Errorf("agent.fulfilHotels: client %d: %w", id, domain.ErrInfeasiblePlan)
	}

	for _, g := range domain.HotelGoods() {
		a.inv.Release(g)
		a.hotels[g].Clear()
	}
	for i, p := range packages {
		p.ReleaseNights()
		p.Grade = st.Grades[i]
		for day := p.Arrival; day < p.Departure; day++ {
			g, err := domain.HotelGood(day, p.Grade)
			if err != nil {
				return noBlocking, fmt.Errorf("agent.fulfilHotels: %w", err)
			}
			h := a.hotels[g]
			if !h.Closed() {
				h.AddPackage(p)
				continue
			}
			if err := a.inv.Allocate(g, 1); err != nil {
				return p.Client.ID, fmt.Errorf("agent.fulfilHotels: %w", err)
			}
			if err := p.BookNight(day, p.Grade); err != nil {
				return noBlocking, fmt.Errorf("agent.fulfilHotels: %w", err)
			}
		}
	}
	for _, g := range domain.HotelGoods() {
		a.hotels[g].Refresh()
	}
	slog.Debug("agent: hotels planned", "cost", st.Cost, "nodes", st.Nodes)
	return noBlocking, nil
}

// onHotelClosed re-runs the hotel search over the current packages once a
// hotel auction has settled, and re-plans everything when it no longer fits.
func (a *Agent) onHotelClosed(g domain.Good) {
	if !a.started {
		return
	}
	blocking, err := a.fulfilHotels(a.assigned())
	if err == nil {
		return
	}
	if !errors.Is(err, domain.ErrInfeasiblePlan) {
		a.fail(err)
		return
	}
	slog.Warn("agent: hotel close broke the plan", "good", g, "client", blocking)
	a.lastBlocking = blocking
	if err := a.Replan(a.ctx); err != nil {
		a.fail(err)
	}
}

func (a *Agent) fail(err error) {
	slog.Error("agent: planning failed", "err", err)
	if a.err == nil {
		a.err = err
	}
}
