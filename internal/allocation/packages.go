// Package allocation decides which client gets which goods: stay windows and
// hotel grade per client, the hotel grade of every package given closed
// auctions, and which owned entertainment tickets go to whom.
package allocation

import (
	"log/slog"
	"maps"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Estimator supplies the expected price and the chance of winning a good
// that is not already owned.
type Estimator interface {
	EstimatedPrice(g domain.Good) float64
	PurchaseProbability(g domain.Good) float64
}

// leg is the price and win probability of one unit in a candidate.
type leg struct {
	good  domain.Good
	owned bool
	prob  float64
	cost  float64
}

func pricing(g domain.Good, est Estimator, stock map[domain.Good]int) leg {
	if stock[g] > 0 {
		return leg{good: g, owned: true, prob: 1}
	}
	return leg{good: g, prob: est.PurchaseProbability(g), cost: est.EstimatedPrice(g)}
}

type candidate struct {
	arrival, departure int
	grade              domain.Grade
	outcome            float64
	legs               []leg
	fun                []leg
}

// Plan is the result of AllocatePackages.
type Plan struct {
	Packages  []*domain.Package
	FromStock map[domain.Good]int // owned units the chosen packages rely on
}

// AllocatePackages picks a stay window and hotel grade per client, in
// registration order. Each client takes the candidate with the best positive
// expected outcome
//
//	P·(gross − cost) + (1 − P)·(−cost)
//
// where P is the joint win probability of flights and nights. Owned units
// used by a client are removed from stock before the next client is looked
// at. Clients with no positive candidate get an unassigned package.
func AllocatePackages(clients []domain.Client, est Estimator, stock map[domain.Good]int) Plan {
	remaining := maps.Clone(stock)
	if remaining == nil {
		remaining = make(map[domain.Good]int)
	}
	plan := Plan{
		Packages:  make([]*domain.Package, 0, len(clients)),
		FromStock: make(map[domain.Good]int),
	}

	for _, c := range clients {
		p := domain.NewPackage(c)
		plan.Packages = append(plan.Packages, p)

		best, ok := bestCandidate(c, est, remaining)
		if !ok {
			slog.Debug("allocation: no profitable package", "client", c.ID)
			continue
		}
		if err := p.Assign(best.arrival, best.departure, best.grade); err != nil {
			slog.Warn("allocation: assign failed", "client", c.ID, "err", err)
			continue
		}
		for _, l := range append(best.legs, best.fun...) {
			if l.owned {
				remaining[l.good]--
				plan.FromStock[l.good]++
			}
		}
		slog.Debug("allocation: package chosen",
			"client", c.ID,
			"arrival", best.arrival,
			"departure", best.departure,
			"grade", best.grade,
			"outcome", best.outcome,
		)
	}
	return plan
}

func bestCandidate(c domain.Client, est Estimator, stock map[domain.Good]int) (candidate, bool) {
	var best candidate
	found := false
	for arr := 1; arr < domain.Days; arr++ {
		for dep := arr + 1; dep <= domain.Days; dep++ {
			for _, grade := range domain.Grades {
				cand, ok := evaluate(c, arr, dep, grade, est, stock)
				if !ok || cand.outcome <= 0 {
					continue
				}
				if !found || cand.outcome > best.outcome {
					best, found = cand, true
				}
			}
		}
	}
	return best, found
}

func evaluate(c domain.Client, arr, dep int, grade domain.Grade, est Estimator, stock map[domain.Good]int) (candidate, bool) {
	in, err := domain.FlightGood(arr, true)
	if err != nil {
		return candidate{}, false
	}
	out, err := domain.FlightGood(dep, false)
	if err != nil {
		return candidate{}, false
	}
	nights, err := domain.NightGoods(arr, dep, grade)
	if err != nil {
		return candidate{}, false
	}

	cand := candidate{arrival: arr, departure: dep, grade: grade}
	// Hotel nights of one stay are distinct goods, so owned stock is checked
	// per night without double counting.
	joint, cost := 1.0, 0.0
	for _, g := range append([]domain.Good{in, out}, nights...) {
		l := pricing(g, est, stock)
		if l.prob <= 0 {
			return candidate{}, false
		}
		joint *= l.prob
		cost += l.cost
		cand.legs = append(cand.legs, l)
	}

	gross := float64(domain.BaseUtility - domain.TravelPenalty*c.Deviation(arr, dep))
	if grade == domain.Premium {
		gross += float64(c.HotelPremium)
	}
	funValue, funLegs := bestFun(c, arr, dep, est, stock)
	cand.fun = funLegs
	gross += funValue

	cand.outcome = joint*(gross-cost) + (1-joint)*(-cost)
	return cand, true
}

// funOption is one (type, day) choice with its expected net value.
type funOption struct {
	leg   leg
	day   int
	value float64
}

// bestFun searches every assignment of distinct stay days to entertainment
// types, each type used at most once, and returns the best expected value.
// Owned tickets are worth the full premium.
func bestFun(c domain.Client, arr, dep int, est Estimator, stock map[domain.Good]int) (float64, []leg) {
	options := make([][]funOption, len(domain.FunTypes))
	for i, t := range domain.FunTypes {
		premium := float64(c.Premium(t))
		if premium <= 0 {
			continue
		}
		for day := arr; day < dep; day++ {
			g, err := domain.EntertainmentGood(day, t)
			if err != nil {
				continue
			}
			l := pricing(g, est, stock)
			v := premium
			if !l.owned {
				v = l.prob*premium - l.cost
			}
			if v > 0 {
				options[i] = append(options[i], funOption{leg: l, day: day, value: v})
			}
		}
	}

	var (
		bestValue float64
		bestLegs  []leg
		used      = make(map[int]bool)
		chosen    []leg
	)
	var walk func(i int, value float64)
	walk = func(i int, value float64) {
		if i == len(options) {
			if value > bestValue {
				bestValue = value
				bestLegs = append([]leg(nil), chosen...)
			}
			return
		}
		walk(i+1, value)
		for _, o := range options[i] {
			if used[o.day] {
				continue
			}
			used[o.day] = true
			chosen = append(chosen, o.leg)
			walk(i+1, value+o.value)
			chosen = chosen[:len(chosen)-1]
			used[o.day] = false
		}
	}
	walk(0, 0)
	return bestValue, bestLegs
}
