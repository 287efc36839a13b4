package allocation

import (
	"maps"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Stay is the hotel requirement of one package.
type Stay struct {
	Arrival      int
	Departure    int
	HotelPremium int
}

// Slot describes one hotel auction for the search.
type Slot struct {
	Closed bool
	Stock  int     // held rooms not yet given to a package
	Price  float64 // predicted price, used while the auction is open
}

// Strategy is the outcome of SearchHotels.
type Strategy struct {
	Grades   []domain.Grade
	Cost     float64 // predicted spend on open auctions
	Feasible bool
	Blocking int // package that could not be served, -1 when feasible
	Nodes    int
}

type branch struct {
	grades   []domain.Grade
	score    float64 // cost minus premiums of premium-graded packages
	cost     float64
	feasible bool
	blocking int
}

// SearchHotels chooses a grade per stay by depth-first search over both
// grades of every package. Open nights cost their predicted price, closed
// nights consume held stock and make the branch infeasible when none is
// left. The cheapest feasible assignment wins, where choosing premium
// credits the client's hotel premium. Ties go to budget.
func SearchHotels(stays []Stay, slots map[domain.Good]Slot) Strategy {
	stock := make(map[domain.Good]int, len(slots))
	for g, s := range slots {
		if s.Closed {
			stock[g] = s.Stock
		}
	}

	nodes := 0
	var search func(depth int, stock map[domain.Good]int) branch
	search = func(depth int, stock map[domain.Good]int) branch {
		nodes++
		if depth == len(stays) {
			return branch{feasible: true, blocking: -1}
		}
		st := stays[depth]

		var results [2]branch
		for i, grade := range domain.Grades {
			local := maps.Clone(stock)
			b := branch{feasible: true, blocking: depth}
			for day := st.Arrival; day < st.Departure; day++ {
				g, err := domain.HotelGood(day, grade)
				if err != nil {
					b.feasible = false
					break
				}
				s := slots[g]
				switch {
				case !s.Closed:
					b.cost += s.Price
				case local[g] > 0:
					local[g]--
				default:
					b.feasible = false
				}
			}
			b.score = b.cost
			if grade == domain.Premium {
				b.score -= float64(st.HotelPremium)
			}
			if b.feasible {
				rest := search(depth+1, local)
				if rest.feasible {
					b.grades = append([]domain.Grade{grade}, rest.grades...)
					b.cost += rest.cost
					b.score += rest.score
				} else {
					b.feasible = false
					b.blocking = rest.blocking
				}
			}
			results[i] = b
		}

		premium, budget := results[0], results[1]
		switch {
		case premium.feasible && budget.feasible:
			if premium.score < budget.score {
				return premium
			}
			return budget
		case premium.feasible:
			return premium
		case budget.feasible:
			return budget
		default:
			return branch{blocking: max(premium.blocking, budget.blocking)}
		}
	}

	root := search(0, stock)
	s := Strategy{Feasible: root.feasible, Nodes: nodes, Blocking: -1}
	if root.feasible {
		s.Grades = root.grades
		s.Cost = root.cost
		if s.Grades == nil {
			s.Grades = []domain.Grade{}
		}
	} else {
		s.Blocking = root.blocking
	}
	return s
}
