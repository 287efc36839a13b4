package domain

import "fmt"

// DayStatus tracks what a client is doing on one day of the stay.
type DayStatus uint8

const (
	NotPresent DayStatus = iota
	Free
	Reserved // an entertainment bid is out for this day
	InUse    // an entertainment ticket is assigned
)

func (s DayStatus) String() string {
	switch s {
	case Free:
		return "free"
	case Reserved:
		return "reserved"
	case InUse:
		return "in-use"
	default:
		return "not-present"
	}
}

type nightBooking struct {
	booked bool
	grade  Grade
}

// Package is the itinerary being assembled for one client.
// A zero Arrival means no stay has been chosen yet.
type Package struct {
	Client    Client
	Arrival   int
	Departure int
	Grade     Grade

	inFlight  bool
	outFlight bool
	nights    [Nights + 1]nightBooking
	fun       map[FunType]int
	status    [Days + 1]DayStatus
}

// NewPackage returns an empty itinerary for c.
func NewPackage(c Client) *Package {
	return &Package{Client: c, fun: make(map[FunType]int, len(FunTypes))}
}

// Assign fixes the stay window and the desired hotel grade. Any previous
// bookings are cleared first.
func (p *Package) Assign(arrival, departure int, grade Grade) error {
	if arrival < 1 || departure > Days || arrival >= departure {
		return fmt.Errorf("domain.Package.Assign: stay %d-%d: %w", arrival, departure, ErrInvalidGood)
	}
	p.Clear()
	p.Arrival, p.Departure, p.Grade = arrival, departure, grade
	for day := arrival; day < departure; day++ {
		p.status[day] = Free
	}
	return nil
}

// Clear drops the stay and every association, keeping the client.
func (p *Package) Clear() {
	p.Arrival, p.Departure, p.Grade = 0, 0, Budget
	p.inFlight, p.outFlight = false, false
	p.nights = [Nights + 1]nightBooking{}
	p.status = [Days + 1]DayStatus{}
	clear(p.fun)
}

// Assigned reports whether a stay window has been chosen.
func (p *Package) Assigned() bool { return p.Arrival > 0 }

// Nights is the number of hotel nights in the stay.
func (p *Package) Nights() int {
	if !p.Assigned() {
		return 0
	}
	return p.Departure - p.Arrival
}

// InStay reports whether day is a night of the stay.
func (p *Package) InStay(day int) bool {
	return p.Assigned() && day >= p.Arrival && day < p.Departure
}

// DayStatus returns the itinerary status of day. Out-of-range days are NotPresent.
func (p *Package) DayStatus(day int) DayStatus {
	if day < 1 || day > Days {
		return NotPresent
	}
	return p.status[day]
}

// ReserveDay marks a free day as awaiting an entertainment ticket.
func (p *Package) ReserveDay(day int) bool {
	if p.DayStatus(day) != Free {
		return false
	}
	p.status[day] = Reserved
	return true
}

// ReleaseDay returns a reserved day to free.
func (p *Package) ReleaseDay(day int) {
	if p.DayStatus(day) == Reserved {
		p.status[day] = Free
	}
}

// SetFlight records the arrival or departure ticket as assigned.
func (p *Package) SetFlight(arrival bool) {
	if arrival {
		p.inFlight = true
		return
	}
	p.outFlight = true
}

// HasFlight reports whether the arrival or departure ticket is assigned.
func (p *Package) HasFlight(arrival bool) bool {
	if arrival {
		return p.inFlight
	}
	return p.outFlight
}

// BookNight records a hotel room for night day.
func (p *Package) BookNight(day int, grade Grade) error {
	if !p.InStay(day) {
		return fmt.Errorf("domain.Package.BookNight: night %d outside stay: %w", day, ErrInvalidGood)
	}
	p.nights[day] = nightBooking{booked: true, grade: grade}
	return nil
}

// ReleaseNights drops every hotel booking, keeping flights and entertainment.
func (p *Package) ReleaseNights() {
	p.nights = [Nights + 1]nightBooking{}
}

// NightBooked reports whether night day has a room.
func (p *Package) NightBooked(day int) bool {
	return p.InStay(day) && p.nights[day].booked
}

// SetFun assigns an entertainment ticket of type t on day.
func (p *Package) SetFun(t FunType, day int) error {
	if !p.InStay(day) {
		return fmt.Errorf("domain.Package.SetFun: day %d outside stay: %w", day, ErrInvalidGood)
	}
	if _, ok := p.fun[t]; ok {
		return fmt.Errorf("domain.Package.SetFun: %s already held: %w", t, ErrInvalidGood)
	}
	if s := p.status[day]; s != Free && s != Reserved {
		return fmt.Errorf("domain.Package.SetFun: day %d is %s: %w", day, s, ErrInvalidGood)
	}
	p.fun[t] = day
	p.status[day] = InUse
	return nil
}

// FunDay returns the day of the assigned ticket of type t.
func (p *Package) FunDay(t FunType) (int, bool) {
	day, ok := p.fun[t]
	return day, ok
}

// Feasible reports whether flights and every night are in place.
func (p *Package) Feasible() bool {
	if !p.Assigned() || !p.inFlight || !p.outFlight {
		return false
	}
	for day := p.Arrival; day < p.Departure; day++ {
		if !p.nights[day].booked {
			return false
		}
	}
	return true
}

// Utility is the client score of the itinerary, 0 unless feasible.
func (p *Package) Utility() int {
	if !p.Feasible() {
		return 0
	}
	u := BaseUtility - TravelPenalty*p.Client.Deviation(p.Arrival, p.Departure)
	allPremium := true
	for day := p.Arrival; day < p.Departure; day++ {
		if p.nights[day].grade != Premium {
			allPremium = false
			break
		}
	}
	if allPremium {
		u += p.Client.HotelPremium
	}
	for t := range p.fun {
		u += p.Client.Premium(t)
	}
	return u
}
