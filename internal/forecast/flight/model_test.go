package flight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// makeDecliningSeries drops 9 per tick from 340 to 160, then creeps down by
// 0.3 per tick until the end of the game.
func makeDecliningSeries() []float64 {
	prices := make([]float64, Horizon)
	prices[0] = 340
	for t := 1; t < Horizon; t++ {
		step := 0.3
		if t <= 20 {
			step = 9
		}
		prices[t] = prices[t-1] - step
	}
	return prices
}

func feed(t *testing.T, m *Model, prices []float64, upto int) {
	t.Helper()
	for tick := 0; tick <= upto; tick++ {
		require.NoError(t, m.AddQuote(prices[tick], tick), "tick %d", tick)
	}
}

func TestAddQuote_StartBand(t *testing.T) {
	for _, p := range []float64{250, 251, 301, 399, 400} {
		assert.NoError(t, NewModel().AddQuote(p, 0), "start %.0f", p)
	}
	for _, p := range []float64{-100, 0, 100, 249, 401, 450} {
		assert.ErrorIs(t, NewModel().AddQuote(p, 0), domain.ErrForecastRange, "start %.0f", p)
	}
}

func TestAddQuote_GeneralBand(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.AddQuote(300, 0))

	// Even ticks only, so no delta is ever evaluated.
	tick := 2
	for _, p := range []float64{150, 151, 250, 342, 400, 799, 800} {
		assert.NoError(t, m.AddQuote(p, tick), "price %.0f", p)
		tick += 2
	}
	for _, p := range []float64{-42, 0, 40, 149, 801, 1293} {
		assert.ErrorIs(t, m.AddQuote(p, tick), domain.ErrForecastRange, "price %.0f", p)
	}
}

func TestAddQuote_TickOutOfRange(t *testing.T) {
	m := NewModel()
	assert.ErrorIs(t, m.AddQuote(300, -1), domain.ErrForecastRange)
	assert.ErrorIs(t, m.AddQuote(300, Horizon), domain.ErrForecastRange)
}

func TestAddQuote_ImpossibleDeltaIsSkipped(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.AddQuote(300, 0))
	before := m.Posterior()

	err := m.AddQuote(200, 1)
	assert.ErrorIs(t, err, domain.ErrForecastRange)
	assert.Equal(t, before, m.Posterior())

	// The rejected sample is not used as the base of the next delta.
	assert.NoError(t, m.AddQuote(305, 1))
}

func TestUpdate_ZeroesExcludedHypotheses(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.AddQuote(300, 0))
	// +10.3 at tick 1 needs f(x,1) = 10 + (x-10)/54 >= 10.3, so x >= 27.
	require.NoError(t, m.AddQuote(310.3, 1))

	post := m.Posterior()
	assert.Zero(t, post[-10])
	assert.Zero(t, post[10])
	assert.Zero(t, post[26])
	assert.Greater(t, post[27], 0.0)
	assert.Greater(t, post[30], 0.0)
}

func TestDecliningSeries_FavoursNegativeDrift(t *testing.T) {
	prices := makeDecliningSeries()
	m := NewModel()
	feed(t, m, prices, 20)

	negative := 0.0
	for x, p := range m.Posterior() {
		if x < 0 {
			negative += p
		}
	}
	assert.Greater(t, negative, 0.7)
	assert.Less(t, m.ExpectedDrift(), 0.0)
	assert.Greater(t, m.Posterior()[-10], m.Posterior()[30])
}

func TestDecliningSeries_FinalPredictionConverges(t *testing.T) {
	prices := makeDecliningSeries()
	m := NewModel()
	feed(t, m, prices, Horizon-1)

	last := prices[Horizon-1]
	assert.InDelta(t, last, m.PredictMinimumPrice(Horizon-1), 1.0)
	assert.Equal(t, Horizon-1, m.PredictMinimumTime(Horizon-1))
}

func TestPriceCumulativeDist_Monotone(t *testing.T) {
	prices := makeDecliningSeries()
	models := map[string]*Model{"fresh": NewModel()}
	partial := NewModel()
	feed(t, partial, prices, 30)
	models["partial"] = partial

	for name, m := range models {
		for _, tick := range []int{0, 1, 10, 27, 30, 45, Horizon - 1} {
			dist := m.PriceCumulativeDist(tick)
			require.Len(t, dist, int(PriceMax)+1)
			for p := 1; p < len(dist); p++ {
				assert.GreaterOrEqual(t, dist[p], dist[p-1], "%s tick %d price %d", name, tick, p)
			}
			assert.InDelta(t, 1.0, dist[len(dist)-1], 1e-9, "%s tick %d", name, tick)
			assert.Zero(t, dist[int(PriceMin)-1], "%s tick %d", name, tick)
		}
	}
}

func TestConfidence_Bounds(t *testing.T) {
	assert.InDelta(t, 0.0, NewModel().Confidence(), 1e-9)

	m := NewModel()
	for i := range m.posterior {
		m.posterior[i] = 0
	}
	m.posterior[0] = 1
	assert.InDelta(t, 1.0, m.Confidence(), 1e-9)

	prices := makeDecliningSeries()
	trained := NewModel()
	feed(t, trained, prices, 20)
	c := trained.Confidence()
	assert.Greater(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)
}

func TestPredictions_NoQuotes(t *testing.T) {
	m := NewModel()
	p := m.PredictMinimumPrice(0)
	assert.GreaterOrEqual(t, p, PriceMin)
	assert.LessOrEqual(t, p, StartMax)
	at := m.PredictMinimumTime(0)
	assert.GreaterOrEqual(t, at, 0)
	assert.Less(t, at, Horizon)
}
