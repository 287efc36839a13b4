package sim

import (
	"context"
	"log/slog"
	"time"

	"code.cloudfoundry.org/clock"
)

// Runner paces an Exchange through a game.
type Runner struct {
	clock    clock.Clock
	exchange *Exchange
	interval time.Duration
	onTick   func(tick int)
}

// NewRunner advances ex every interval. A non-positive interval runs the game
// as fast as possible. onTick, if set, runs after each tick's events.
func NewRunner(c clock.Clock, ex *Exchange, interval time.Duration, onTick func(tick int)) *Runner {
	return &Runner{clock: c, exchange: ex, interval: interval, onTick: onTick}
}

// Run blocks until the game is over or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	started := r.clock.Now()
	r.exchange.Open()
	if r.onTick != nil {
		r.onTick(r.exchange.Tick())
	}

	if r.interval <= 0 {
		for !r.exchange.Done() {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.step()
		}
		slog.Debug("sim: game finished", "ticks", r.exchange.Tick())
		return nil
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	for !r.exchange.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			r.step()
		}
	}
	slog.Info("sim: game finished", "ticks", r.exchange.Tick(), "elapsed", r.clock.Since(started))
	return nil
}

func (r *Runner) step() {
	r.exchange.Advance()
	if r.onTick != nil {
		r.onTick(r.exchange.Tick())
	}
}
