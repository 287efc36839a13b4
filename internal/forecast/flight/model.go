// Package flight estimates the hidden price drift of a flight auction and
// projects its future minimum price.
//
// Each auction draws a hidden x in [DriftMin, DriftMax]. At tick t the price
// moves by a delta drawn uniformly from [-10, f] when f(x,t) > 0, from
// [f, 10] when f < 0, and from [-10, 10] when f = 0, where
// f(x,t) = 10 + (t/T)(x - 10). The model keeps a posterior over x.
package flight

import (
	"fmt"
	"math"
	"sort"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

const (
	Horizon  = domain.FlightHorizon
	PriceMin = 150.0
	PriceMax = 800.0
	StartMin = 250.0
	StartMax = 400.0
	DriftMin = -10
	DriftMax = 30

	hypotheses = DriftMax - DriftMin + 1
)

// Model is the posterior over the drift of one flight auction.
type Model struct {
	prices    [Horizon]float64
	seen      [Horizon]bool
	posterior [hypotheses]float64
}

// NewModel starts from a uniform prior.
func NewModel() *Model {
	m := &Model{}
	for i := range m.posterior {
		m.posterior[i] = 1.0 / hypotheses
	}
	return m
}

// drift is f(x,t).
func drift(x, t int) float64 {
	return 10 + (float64(t)/Horizon)*(float64(x)-10)
}

// DeltaBounds is the support of the one-step price change under drift
// parameter x at tick t.
func DeltaBounds(x, t int) (lo, hi float64) {
	f := drift(x, t)
	switch {
	case f > 0:
		return -10, f
	case f < 0:
		return f, 10
	default:
		return -10, 10
	}
}

func likelihood(delta float64, x, t int) float64 {
	lo, hi := DeltaBounds(x, t)
	if delta < lo || delta > hi {
		return 0
	}
	return 1 / (hi - lo)
}

// AddQuote records the ask at tick and updates the posterior from the change
// since the previous tick, when that tick was observed.
func (m *Model) AddQuote(price float64, tick int) error {
	if tick < 0 || tick >= Horizon {
		return fmt.Errorf("flight.AddQuote: tick %d: %w", tick, domain.ErrForecastRange)
	}
	lo, hi := PriceMin, PriceMax
	if tick == 0 {
		lo, hi = StartMin, StartMax
	}
	if price < lo || price > hi {
		return fmt.Errorf("flight.AddQuote: price %.2f at tick %d outside [%.0f,%.0f]: %w",
			price, tick, lo, hi, domain.ErrForecastRange)
	}

	if tick > 0 && m.seen[tick-1] {
		if err := m.update(price-m.prices[tick-1], tick); err != nil {
			return err
		}
	}
	m.prices[tick] = price
	m.seen[tick] = true
	return nil
}

// update applies Bayes' rule. A delta no hypothesis can explain leaves the
// posterior untouched.
func (m *Model) update(delta float64, t int) error {
	var next [hypotheses]float64
	total := 0.0
	for i := range m.posterior {
		next[i] = likelihood(delta, DriftMin+i, t) * m.posterior[i]
		total += next[i]
	}
	if total == 0 {
		return fmt.Errorf("flight.update: delta %.2f at tick %d impossible under every drift: %w",
			delta, t, domain.ErrForecastRange)
	}
	for i := range next {
		m.posterior[i] = next[i] / total
	}
	return nil
}

// lastPrice is the latest observed price at or before tick, or the middle of
// the starting band when nothing was seen yet.
func (m *Model) lastPrice(tick int) float64 {
	for t := min(tick, Horizon-1); t >= 0; t-- {
		if m.seen[t] {
			return m.prices[t]
		}
	}
	return StartMin + (StartMax-StartMin)/2
}

func clampTick(tick int) int {
	return max(0, min(tick, Horizon-1))
}

// project walks the expected path under x from tick to the end of the game.
// Index 0 is the price at tick.
func (m *Model) project(x, tick int) []float64 {
	path := make([]float64, Horizon-tick)
	last := m.lastPrice(tick)
	path[0] = last
	for t := tick + 1; t < Horizon; t++ {
		lo, hi := DeltaBounds(x, t)
		last = math.Max(PriceMin, math.Min(PriceMax, last+(lo+hi)/2))
		path[t-tick] = last
	}
	return path
}

// expectedPath is the posterior-weighted average of every projection.
func (m *Model) expectedPath(tick int) []float64 {
	path := make([]float64, Horizon-tick)
	for i, p := range m.posterior {
		if p == 0 {
			continue
		}
		for j, v := range m.project(DriftMin+i, tick) {
			path[j] += v * p
		}
	}
	return path
}

func minOf(path []float64) (price float64, at int) {
	price = PriceMax
	for i, v := range path {
		if v < price {
			price, at = v, i
		}
	}
	return price, at
}

// PredictMinimumPrice is the lowest price on the expected path from tick.
func (m *Model) PredictMinimumPrice(tick int) float64 {
	p, _ := minOf(m.expectedPath(clampTick(tick)))
	return p
}

// PredictMinimumTime is the tick at which the expected path bottoms out.
func (m *Model) PredictMinimumTime(tick int) int {
	tick = clampTick(tick)
	_, at := minOf(m.expectedPath(tick))
	return tick + at
}

// PriceCumulativeDist returns, for every integer price p in [0, PriceMax],
// the posterior probability that the minimum price from tick is ≤ p.
func (m *Model) PriceCumulativeDist(tick int) []float64 {
	tick = clampTick(tick)
	type candidate struct {
		min  float64
		prob float64
	}
	cands := make([]candidate, 0, hypotheses)
	for i, p := range m.posterior {
		low, _ := minOf(m.project(DriftMin+i, tick))
		cands = append(cands, candidate{min: low, prob: p})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].min < cands[j].min })

	dist := make([]float64, int(PriceMax)+1)
	cumulative := 0.0
	next := 0
	for price := range dist {
		for next < len(cands) && cands[next].min <= float64(price) {
			cumulative += cands[next].prob
			next++
		}
		dist[price] = math.Min(cumulative, 1)
	}
	return dist
}

// Confidence measures how concentrated the posterior is: 0 for uniform,
// 1 for a point mass.
func (m *Model) Confidence() float64 {
	mean := 1.0 / hypotheses
	ss := 0.0
	for _, p := range m.posterior {
		ss += (mean - p) * (mean - p)
	}
	return math.Min(1, math.Sqrt(ss*hypotheses/(hypotheses-1)))
}

// Posterior returns the probability of each drift x.
func (m *Model) Posterior() map[int]float64 {
	out := make(map[int]float64, hypotheses)
	for i, p := range m.posterior {
		out[DriftMin+i] = p
	}
	return out
}

// ExpectedDrift is the posterior mean of x.
func (m *Model) ExpectedDrift() float64 {
	e := 0.0
	for i, p := range m.posterior {
		e += float64(DriftMin+i) * p
	}
	return e
}
