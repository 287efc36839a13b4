package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/tacbot/config"
	"github.com/alejandrodnm/tacbot/internal/adapters/sim"
	"github.com/alejandrodnm/tacbot/internal/application/agent"
	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/ports"
)

// player runs games against the simulator, sharing one history store.
type player struct {
	cfg      *config.Config
	store    ports.HistoryStore
	reporter ports.Reporter
	clock    clock.Clock
	clients  func(seed uint64) ports.ClientSource

	mu sync.Mutex // serialises reports
}

func newPlayer(cfg *config.Config, store ports.HistoryStore, reporter ports.Reporter) *player {
	return &player{
		cfg:      cfg,
		store:    store,
		reporter: reporter,
		clock:    clock.NewClock(),
		clients:  func(seed uint64) ports.ClientSource { return sim.NewClients(seed) },
	}
}

// playAll plays n games, at most parallel at a time. Summaries of the games
// that finished are returned in game order even when one of them fails.
func (p *player) playAll(ctx context.Context, n, parallel int) ([]domain.GameSummary, error) {
	results := make([]*domain.GameSummary, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i := range n {
		g.Go(func() error {
			s, err := p.play(gctx, i)
			if err != nil {
				return fmt.Errorf("game %d: %w", i+1, err)
			}
			results[i] = &s
			return nil
		})
	}
	err := g.Wait()

	var out []domain.GameSummary
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, err
}

func (p *player) play(ctx context.Context, n int) (domain.GameSummary, error) {
	seed := p.cfg.Sim.Seed + uint64(n)
	ex := sim.New(p.simConfig(seed))

	a, err := agent.New(ctx, p.agentConfig(), ex, p.store)
	if err != nil {
		return domain.GameSummary{}, fmt.Errorf("main.play: %w", err)
	}
	unsubscribe := ex.Subscribe(a.Handle)
	defer unsubscribe()

	if err := a.Start(ctx, agent.GameStart{
		StartedAt: p.clock.Now(),
		Clients:   p.clients(seed).Clients(),
		Endowment: ex.Endowment(),
	}); err != nil {
		return domain.GameSummary{}, fmt.Errorf("main.play: %w", err)
	}

	runner := sim.NewRunner(p.clock, ex, p.cfg.TickInterval(), a.Advance)
	runErr := runner.Run(ctx)

	// An interrupted game still has to stop and settle its history.
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	summary, err := a.Stop(stopCtx)
	if runErr != nil {
		return summary, fmt.Errorf("main.play: run: %w", runErr)
	}
	if err != nil {
		return summary, fmt.Errorf("main.play: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.reporter.Report(ctx, summary); err != nil {
		slog.Warn("report failed", "game", summary.GameID, "err", err)
	}
	return summary, nil
}

func (p *player) agentConfig() agent.Config {
	a := p.cfg.Agent
	cfg := agent.DefaultConfig()
	cfg.LateStartTick = a.LateStartTick
	cfg.Flight.PanicTicks = a.PanicTicks
	cfg.Flight.RefreshEvery = a.FlightRefreshTicks
	cfg.Fun.ProfitFactor = a.FunProfitFactor
	cfg.Fun.SellPrice = a.FunSellPrice
	cfg.Hotel.MinRaise = a.HotelMinRaise
	copy(cfg.Hotel.Markup[:], a.HotelMarkup)
	return cfg
}

func (p *player) simConfig(seed uint64) sim.Config {
	s := p.cfg.Sim
	cfg := sim.DefaultConfig()
	cfg.Seed = seed
	cfg.SubmitRate = s.SubmitRate
	cfg.SubmitBurst = s.SubmitBurst
	cfg.Opponents = s.Opponents
	cfg.FunFillProb = s.FunFillProb
	cfg.Endowment = s.Endowment
	return cfg
}
