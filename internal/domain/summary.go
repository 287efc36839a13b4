package domain

// ClientResult is the end-of-game itinerary of one client.
type ClientResult struct {
	ClientID  int
	Arrival   int
	Departure int
	Grade     Grade
	Fun       map[FunType]int // type → day
	Feasible  bool
	Utility   int
}

// GameSummary is reported when a game stops.
type GameSummary struct {
	GameID  string
	Clients []ClientResult
	Spend   float64 // cash paid for goods, net of sales
	Utility int
	Replans int
}

// Score is total client utility minus spend.
func (s GameSummary) Score() float64 {
	return float64(s.Utility) - s.Spend
}

// ResultOf snapshots a package into a ClientResult.
func ResultOf(p *Package) ClientResult {
	fun := make(map[FunType]int, len(p.fun))
	for t, d := range p.fun {
		fun[t] = d
	}
	return ClientResult{
		ClientID:  p.Client.ID,
		Arrival:   p.Arrival,
		Departure: p.Departure,
		Grade:     p.Grade,
		Fun:       fun,
		Feasible:  p.Feasible(),
		Utility:   p.Utility(),
	}
}
