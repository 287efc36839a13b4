package domain

import "fmt"

// Kind is the family of a tradable good.
type Kind uint8

const (
	KindFlight Kind = iota + 1
	KindHotel
	KindFun
)

func (k Kind) String() string {
	switch k {
	case KindFlight:
		return "flight"
	case KindHotel:
		return "hotel"
	case KindFun:
		return "fun"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Flight subtypes.
const (
	Inbound  uint8 = 0 // arrival flight
	Outbound uint8 = 1 // departure flight
)

// Grade is the hotel grade of a night.
type Grade uint8

const (
	Budget  Grade = 0 // "SS"
	Premium Grade = 1 // "TT"
)

// Grades lists both hotel grades, premium first.
var Grades = [2]Grade{Premium, Budget}

func (g Grade) String() string {
	if g == Premium {
		return "TT"
	}
	return "SS"
}

// FunType is an entertainment category.
type FunType uint8

const (
	AlligatorWrestling FunType = iota + 1
	Amusement
	Museum
)

// FunTypes lists every entertainment category.
var FunTypes = [3]FunType{AlligatorWrestling, Amusement, Museum}

func (t FunType) String() string {
	switch t {
	case AlligatorWrestling:
		return "AW"
	case Amusement:
		return "AM"
	case Museum:
		return "MU"
	default:
		return fmt.Sprintf("fun(%d)", uint8(t))
	}
}

// Good identifies one tradable unit type: kind, day and subtype.
// It is comparable and used directly as a map key.
type Good struct {
	Kind Kind
	Day  int
	Sub  uint8
}

// NewGood validates the (kind, day, sub) triple.
//
//   - flights: inbound on day 1..4, outbound on day 2..5
//   - hotels:  night 1..4, grade Budget or Premium
//   - fun:     day 1..4, type AW, AM or MU
func NewGood(kind Kind, day int, sub uint8) (Good, error) {
	g := Good{Kind: kind, Day: day, Sub: sub}
	ok := false
	switch kind {
	case KindFlight:
		switch sub {
		case Inbound:
			ok = day >= 1 && day <= Days-1
		case Outbound:
			ok = day >= 2 && day <= Days
		}
	case KindHotel:
		ok = day >= 1 && day <= Nights && sub <= uint8(Premium)
	case KindFun:
		ok = day >= 1 && day <= Nights && sub >= uint8(AlligatorWrestling) && sub <= uint8(Museum)
	}
	if !ok {
		return Good{}, fmt.Errorf("domain.NewGood: %s day=%d sub=%d: %w", kind, day, sub, ErrInvalidGood)
	}
	return g, nil
}

// FlightGood returns the inbound (arrival) or outbound flight on day.
func FlightGood(day int, arrival bool) (Good, error) {
	sub := Outbound
	if arrival {
		sub = Inbound
	}
	return NewGood(KindFlight, day, sub)
}

// HotelGood returns the hotel night starting on day.
func HotelGood(day int, grade Grade) (Good, error) {
	return NewGood(KindHotel, day, uint8(grade))
}

// EntertainmentGood returns the entertainment ticket of type t for day.
func EntertainmentGood(day int, t FunType) (Good, error) {
	return NewGood(KindFun, day, uint8(t))
}

// NightGoods returns one hotel good per night of a stay [arrival, departure).
func NightGoods(arrival, departure int, grade Grade) ([]Good, error) {
	goods := make([]Good, 0, departure-arrival)
	for day := arrival; day < departure; day++ {
		g, err := HotelGood(day, grade)
		if err != nil {
			return nil, err
		}
		goods = append(goods, g)
	}
	return goods, nil
}

// IsArrival reports whether the good is an inbound flight.
func (g Good) IsArrival() bool { return g.Kind == KindFlight && g.Sub == Inbound }

// Grade returns the hotel grade. Only meaningful for hotel goods.
func (g Good) Grade() Grade { return Grade(g.Sub) }

// FunType returns the entertainment type. Only meaningful for fun goods.
func (g Good) FunType() FunType { return FunType(g.Sub) }

func (g Good) String() string {
	switch g.Kind {
	case KindFlight:
		if g.IsArrival() {
			return fmt.Sprintf("flight-in/%d", g.Day)
		}
		return fmt.Sprintf("flight-out/%d", g.Day)
	case KindHotel:
		return fmt.Sprintf("hotel-%s/%d", g.Grade(), g.Day)
	case KindFun:
		return fmt.Sprintf("fun-%s/%d", g.FunType(), g.Day)
	default:
		return fmt.Sprintf("good(%d,%d,%d)", g.Kind, g.Day, g.Sub)
	}
}

// AllGoods enumerates every valid good: 8 flights, 8 hotel nights, 12 fun tickets.
func AllGoods() []Good {
	goods := make([]Good, 0, 28)
	for day := 1; day <= Days; day++ {
		if g, err := FlightGood(day, true); err == nil {
			goods = append(goods, g)
		}
		if g, err := FlightGood(day, false); err == nil {
			goods = append(goods, g)
		}
	}
	goods = append(goods, HotelGoods()...)
	for day := 1; day <= Nights; day++ {
		for _, t := range FunTypes {
			g, _ := EntertainmentGood(day, t)
			goods = append(goods, g)
		}
	}
	return goods
}

// HotelGoods enumerates the 8 hotel goods, budget nights first.
func HotelGoods() []Good {
	goods := make([]Good, 0, 2*Nights)
	for _, grade := range [2]Grade{Budget, Premium} {
		for day := 1; day <= Nights; day++ {
			g, _ := HotelGood(day, grade)
			goods = append(goods, g)
		}
	}
	return goods
}
