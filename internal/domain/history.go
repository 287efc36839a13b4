package domain

import "time"

// PriceCurve is the ask price of one hotel auction at every minute, and the
// minute it closed (0 while open).
type PriceCurve struct {
	Prices   [HotelMinutes + 1]float64
	ClosedOn int
}

// GameRecord holds the hotel price curves observed in one game.
type GameRecord struct {
	ID        string
	StartedAt time.Time
	Curves    map[Good]PriceCurve
}

// NewGameRecord returns a record with an empty curve for every hotel good.
func NewGameRecord(id string, startedAt time.Time) GameRecord {
	curves := make(map[Good]PriceCurve, 2*Nights)
	for _, g := range HotelGoods() {
		curves[g] = PriceCurve{}
	}
	return GameRecord{ID: id, StartedAt: startedAt, Curves: curves}
}
