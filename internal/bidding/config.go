// Package bidding turns desired quantities into bids on auction sessions.
package bidding

import "github.com/alejandrodnm/tacbot/internal/domain"

// FlightConfig tunes the flight controllers.
type FlightConfig struct {
	// RefreshEvery is the tick period between bid refreshes.
	RefreshEvery int
	// PanicTicks is how many ticks before the end the controller stops
	// optimising and bids just above the ask.
	PanicTicks     int
	PanicIncrement float64
}

// HotelConfig tunes the hotel controllers.
type HotelConfig struct {
	// Markup multiplies the expected next price, indexed by minute.
	Markup [domain.HotelMinutes + 1]float64
	// MinRaise is the lowest margin over the ask for the intention tier.
	MinRaise float64
	// HoldingPrice is the price of the cheap bid placed before the auction moves.
	HoldingPrice float64
}

// FunConfig tunes entertainment trading.
type FunConfig struct {
	// ProfitFactor is the share of the premium kept as margin when buying.
	ProfitFactor float64
	SellPrice    float64
	// DefaultPrice is the estimate used before the first quote.
	DefaultPrice float64
}

func DefaultFlightConfig() FlightConfig {
	return FlightConfig{RefreshEvery: 2, PanicTicks: 2, PanicIncrement: 1}
}

func DefaultHotelConfig() HotelConfig {
	return HotelConfig{
		Markup:       [domain.HotelMinutes + 1]float64{1.5, 1.1, 1.1, 1.1, 1.2, 1.3, 1.4, 1.5, 0},
		MinRaise:     75,
		HoldingPrice: 1.01,
	}
}

func DefaultFunConfig() FunConfig {
	return FunConfig{ProfitFactor: 0.2, SellPrice: 100, DefaultPrice: 100}
}
