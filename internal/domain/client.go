package domain

// Client is one traveller's preference record. Read-only for the game.
type Client struct {
	ID           int
	ArrivalDay   int
	DepartureDay int
	HotelPremium int
	FunPremium   map[FunType]int
}

// Premium returns the bonus for an entertainment type, 0 if unknown.
func (c Client) Premium(t FunType) int {
	return c.FunPremium[t]
}

// Deviation is the travel penalty in days for a candidate stay.
func (c Client) Deviation(arrival, departure int) int {
	return abs(arrival-c.ArrivalDay) + abs(departure-c.DepartureDay)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
