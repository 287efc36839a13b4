package sim

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/forecast/flight"
)

type flightMarket struct {
	x     int // hidden drift
	price float64
}

func newFlightMarket(rng *rand.Rand) *flightMarket {
	return &flightMarket{
		x:     flight.DriftMin + rng.IntN(flight.DriftMax-flight.DriftMin+1),
		price: flight.StartMin + rng.Float64()*(flight.StartMax-flight.StartMin),
	}
}

func (m *flightMarket) step(rng *rand.Rand, tick int) {
	lo, hi := flight.DeltaBounds(m.x, tick)
	m.price += lo + rng.Float64()*(hi-lo)
	m.price = math.Max(flight.PriceMin, math.Min(flight.PriceMax, m.price))
}

const hotelRooms = 16

type hotelUnit struct {
	price float64
	ours  bool
}

type hotelMarket struct {
	base      float64
	opponents []float64 // one entry per unit
	ask       float64
	closed    bool
}

func newHotelMarket(g domain.Good) *hotelMarket {
	base := 40.0
	if g.Grade() == domain.Premium {
		base = 70
	}
	return &hotelMarket{base: base}
}

// step lets the opponents add units just above the ask.
func (m *hotelMarket) step(rng *rand.Rand, opponents int, ours domain.Bid) {
	if m.closed {
		return
	}
	for range rng.IntN(opponents/3 + 1) {
		m.opponents = append(m.opponents, math.Max(m.ask, m.base)+5+rng.Float64()*25)
	}
	m.ask = m.price(ours)
}

// units ranks every unit by price. Opponents win ties.
func (m *hotelMarket) units(ours domain.Bid) []hotelUnit {
	units := make([]hotelUnit, 0, len(m.opponents)+ours.Quantity())
	for _, p := range m.opponents {
		units = append(units, hotelUnit{price: p})
	}
	for _, pt := range ours.Points() {
		for range max(pt.Quantity, 0) {
			units = append(units, hotelUnit{price: pt.Price, ours: true})
		}
	}
	slices.SortStableFunc(units, func(a, b hotelUnit) int {
		if c := cmp.Compare(b.price, a.price); c != 0 {
			return c
		}
		if a.ours == b.ours {
			return 0
		}
		if b.ours {
			return -1
		}
		return 1
	})
	return units
}

// price is the sixteenth highest unit price, 0 while fewer units are bid.
func (m *hotelMarket) price(ours domain.Bid) float64 {
	units := m.units(ours)
	if len(units) < hotelRooms {
		return 0
	}
	return units[hotelRooms-1].price
}

// hqw is the number of our units that would win if the auction closed now.
func (m *hotelMarket) hqw(ours domain.Bid) int {
	if m.closed {
		return 0
	}
	units := m.units(ours)
	n := 0
	for _, u := range units[:min(hotelRooms, len(units))] {
		if u.ours {
			n++
		}
	}
	return n
}

const funSpread = 10.0

type funMarket struct {
	base float64
	ask  float64
}

func newFunMarket(rng *rand.Rand) *funMarket {
	base := 60 + rng.Float64()*80
	return &funMarket{base: base, ask: base}
}

func (m *funMarket) step(rng *rand.Rand) {
	m.ask = m.base + (rng.Float64()*10 - 5)
}

// bid is what counterparties pay for our tickets.
func (m *funMarket) bid() float64 { return m.ask - funSpread }
