package domain

// Game-wide constants of the travel market.
const (
	Days    = 5 // travel window is day 1..Days
	Nights  = 4 // hotel nights 1..Nights
	Clients = 8 // clients per agent

	// FlightHorizon is the number of 10-second flight ticks in a game.
	FlightHorizon = 54
	// HotelMinutes is the last minute at which a hotel auction can close.
	// Price curves carry one slot per minute 0..HotelMinutes.
	HotelMinutes   = 8
	TicksPerMinute = 6

	BaseUtility   = 1000
	TravelPenalty = 100
)

// MinuteOf converts a flight tick to the hotel minute it falls in.
func MinuteOf(tick int) int {
	m := tick / TicksPerMinute
	if m < 0 {
		return 0
	}
	if m > HotelMinutes {
		return HotelMinutes
	}
	return m
}
