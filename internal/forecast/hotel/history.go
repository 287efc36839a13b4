// Package hotel forecasts hotel auction prices from the curves of past games.
package hotel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/ports"
)

const minutes = domain.HotelMinutes

// Average rise per minute when no game has been recorded yet.
var (
	defaultBudgetRises  = [minutes]float64{100, 50, 15, 15, 15, 15, 15, 15}
	defaultPremiumRises = [minutes]float64{125, 75, 25, 25, 25, 25, 25, 25}
)

const defaultPriceDifference = 25.0

// History keeps completed games and the game in progress.
//
// rises[g][k] is the mean price change during minute k+1 and avg[g][k] its
// running sum, i.e. the typical price at minute k+1.
type History struct {
	store ports.HistoryStore
	games []domain.GameRecord

	current  domain.GameRecord
	observed map[domain.Good]int // last minute with a quote, per auction
	dirty    bool

	rises    map[domain.Good][minutes]float64
	avg      map[domain.Good][minutes]float64
	closeDif [domain.Nights + 1]float64
	est      map[domain.Good]float64
}

// NewHistory loads every completed game from store.
func NewHistory(ctx context.Context, store ports.HistoryStore) (*History, error) {
	games, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("hotel.NewHistory: load: %w", err)
	}
	h := &History{
		store: store,
		games: games,
		est:   make(map[domain.Good]float64),
	}
	h.recompute()
	h.StartGame("", time.Time{})
	slog.Info("hotel: history loaded", "games", len(games))
	return h, nil
}

// StartGame begins recording a new in-progress game.
func (h *History) StartGame(id string, startedAt time.Time) {
	h.current = domain.NewGameRecord(id, startedAt)
	h.observed = make(map[domain.Good]int, 2*domain.Nights)
	h.dirty = false
	h.Update()
}

// Games is the number of completed games feeding the averages.
func (h *History) Games() int { return len(h.games) }

// Current returns a copy of the in-progress record.
func (h *History) Current() domain.GameRecord {
	curves := make(map[domain.Good]domain.PriceCurve, len(h.current.Curves))
	for g, c := range h.current.Curves {
		curves[g] = c
	}
	rec := h.current
	rec.Curves = curves
	return rec
}

// Dirty reports whether the game will be discarded instead of saved.
func (h *History) Dirty() bool { return h.dirty }

// MarkDirty flags the in-progress game as incomplete.
func (h *History) MarkDirty(reason string) {
	if !h.dirty {
		slog.Warn("hotel: history marked dirty", "game", h.current.ID, "reason", reason)
	}
	h.dirty = true
}

// Observe records the ask of a hotel auction at a minute. A closed auction
// keeps its closing price for the rest of the curve.
func (h *History) Observe(g domain.Good, minute int, price float64, closed bool) {
	if g.Kind != domain.KindHotel || minute < 0 || minute > minutes {
		return
	}
	c := h.current.Curves[g]
	if c.ClosedOn > 0 {
		return
	}
	c.Prices[minute] = price
	if closed {
		c.ClosedOn = max(minute, 1)
		for m := minute + 1; m <= minutes; m++ {
			c.Prices[m] = price
		}
	}
	h.current.Curves[g] = c
	h.observed[g] = max(h.observed[g], minute)
}

func (h *History) recompute() {
	h.rises = make(map[domain.Good][minutes]float64, 2*domain.Nights)
	h.avg = make(map[domain.Good][minutes]float64, 2*domain.Nights)

	for _, g := range domain.HotelGoods() {
		var rises [minutes]float64
		switch {
		case len(h.games) == 0 && g.Grade() == domain.Premium:
			rises = defaultPremiumRises
		case len(h.games) == 0:
			rises = defaultBudgetRises
		default:
			var n [minutes]int
			for _, game := range h.games {
				c := game.Curves[g]
				for m := 1; m <= c.ClosedOn && m <= minutes; m++ {
					rises[m-1] += c.Prices[m] - c.Prices[m-1]
					n[m-1]++
				}
			}
			for k := range rises {
				if n[k] > 0 {
					rises[k] /= float64(n[k])
				}
			}
		}
		h.rises[g] = rises

		var avg [minutes]float64
		sum := 0.0
		for k, r := range rises {
			sum += r
			avg[k] = sum
		}
		h.avg[g] = avg
	}

	for day := 1; day <= domain.Nights; day++ {
		h.closeDif[day] = defaultPriceDifference
		if len(h.games) == 0 {
			continue
		}
		tt, _ := domain.HotelGood(day, domain.Premium)
		ss, _ := domain.HotelGood(day, domain.Budget)
		sum := 0.0
		for _, game := range h.games {
			sum += closePrice(game.Curves[tt]) - closePrice(game.Curves[ss])
		}
		h.closeDif[day] = sum / float64(len(h.games))
	}
}

func closePrice(c domain.PriceCurve) float64 {
	return c.Prices[min(c.ClosedOn, minutes)]
}

// linear extrapolates the price per minute so far over the expected
// remaining life of the auction.
func linear(price float64, m int) float64 {
	perMinute := price / float64(m)
	return perMinute * (float64(m) + float64(minutes-m)/2)
}

// Update recomputes the final price estimate of every hotel auction. Each
// auction is scaled from its own latest quote, so an auction whose quote for
// the new minute has not arrived yet keeps using the previous one.
func (h *History) Update() {
	for _, g := range domain.HotelGoods() {
		m := h.observed[g]
		c := h.current.Curves[g]
		avg := h.avg[g]
		switch {
		case c.ClosedOn > 0:
			h.est[g] = closePrice(c)
		case m == 0:
			sum := 0.0
			for _, v := range avg {
				sum += v
			}
			h.est[g] = sum / minutes
		default:
			cur := c.Prices[m]
			if m >= minutes {
				h.est[g] = cur
				continue
			}
			at := avg[m-1]
			if at == 0 {
				h.est[g] = linear(cur, m)
				continue
			}
			sum := 0.0
			for k := m; k < minutes; k++ {
				sum += avg[k]
			}
			h.est[g] = (sum / float64(minutes-m)) * cur / at
		}
	}
}

// EstimatedPrice is the expected closing price of a hotel auction.
func (h *History) EstimatedPrice(g domain.Good) float64 {
	return h.est[g]
}

// EstimatedNextPrice is the expected ask one minute from now.
func (h *History) EstimatedNextPrice(g domain.Good) float64 {
	c := h.current.Curves[g]
	avg := h.avg[g]
	m := h.observed[g]
	switch {
	case c.ClosedOn > 0:
		return closePrice(c)
	case m == 0:
		return avg[0]
	case m >= minutes:
		return c.Prices[m]
	}
	cur := c.Prices[m]
	at := avg[m-1]
	if at == 0 {
		return linear(cur, m)
	}
	return avg[m] * cur / at
}

// PriceDifference is the estimated premium-over-budget price of one night.
func (h *History) PriceDifference(day int) float64 {
	tt, err := domain.HotelGood(day, domain.Premium)
	if err != nil {
		return 0
	}
	ss, _ := domain.HotelGood(day, domain.Budget)
	return h.est[tt] - h.est[ss]
}

// HistoricalDifference is the mean premium-over-budget closing price of one
// night across recorded games.
func (h *History) HistoricalDifference(day int) float64 {
	if day < 1 || day > domain.Nights {
		return 0
	}
	return h.closeDif[day]
}

// Checkpoint stores the in-progress game so a crash keeps what was seen.
func (h *History) Checkpoint(ctx context.Context) error {
	if h.current.ID == "" {
		return nil
	}
	if err := h.store.Checkpoint(ctx, h.Current()); err != nil {
		return fmt.Errorf("hotel.Checkpoint: %w", err)
	}
	return nil
}

// Save persists the in-progress game and folds it into the averages.
// A dirty game is discarded instead.
func (h *History) Save(ctx context.Context) error {
	if h.dirty {
		return h.Discard(ctx)
	}
	rec := h.Current()
	if err := h.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("hotel.Save: %w", err)
	}
	h.games = append(h.games, rec)
	h.recompute()
	slog.Info("hotel: game saved", "game", rec.ID, "games", len(h.games))
	return nil
}

// Discard drops the in-progress game.
func (h *History) Discard(ctx context.Context) error {
	if err := h.store.Discard(ctx, h.current.ID); err != nil {
		return fmt.Errorf("hotel.Discard: %w", err)
	}
	slog.Info("hotel: game discarded", "game", h.current.ID)
	return nil
}
