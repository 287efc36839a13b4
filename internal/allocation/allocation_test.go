package allocation

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// stubEstimator prices flights at 300, budget nights at 50, premium nights
// at 90 and entertainment at 20, all certain to be won unless closed.
type stubEstimator struct {
	closed map[domain.Good]bool
}

func (s stubEstimator) EstimatedPrice(g domain.Good) float64 {
	switch g.Kind {
	case domain.KindFlight:
		return 300
	case domain.KindHotel:
		if g.Grade() == domain.Premium {
			return 90
		}
		return 50
	default:
		return 20
	}
}

func (s stubEstimator) PurchaseProbability(g domain.Good) float64 {
	if s.closed[g] {
		return 0
	}
	return 1
}

func makeClient(id, arr, dep, hotel int, aw, am, mu int) domain.Client {
	return domain.Client{
		ID:           id,
		ArrivalDay:   arr,
		DepartureDay: dep,
		HotelPremium: hotel,
		FunPremium: map[domain.FunType]int{
			domain.AlligatorWrestling: aw,
			domain.Amusement:          am,
			domain.Museum:             mu,
		},
	}
}

func good(t *testing.T) func(domain.Good, error) domain.Good {
	return func(g domain.Good, err error) domain.Good {
		t.Helper()
		require.NoError(t, err)
		return g
	}
}

// --- AllocatePackages ---

func TestAllocatePackages_PremiumScenario(t *testing.T) {
	c := makeClient(1, 1, 4, 200, 50, 150, 10)
	plan := AllocatePackages([]domain.Client{c}, stubEstimator{}, nil)

	require.Len(t, plan.Packages, 1)
	p := plan.Packages[0]
	assert.Equal(t, 1, p.Arrival)
	assert.Equal(t, 4, p.Departure)
	assert.Equal(t, domain.Premium, p.Grade)
	assert.Equal(t, 3, p.Nights())

	strategy := SearchHotels(
		[]Stay{{Arrival: p.Arrival, Departure: p.Departure, HotelPremium: c.HotelPremium}},
		openSlots(stubEstimator{}),
	)
	require.True(t, strategy.Feasible)
	assert.Equal(t, []domain.Grade{domain.Premium}, strategy.Grades)
	assert.InDelta(t, 270, strategy.Cost, 1e-9)

	tickets := []Ticket{
		{ID: 1, Good: good(t)(domain.EntertainmentGood(1, domain.AlligatorWrestling))},
		{ID: 2, Good: good(t)(domain.EntertainmentGood(2, domain.Amusement))},
		{ID: 3, Good: good(t)(domain.EntertainmentGood(3, domain.Museum))},
	}
	res := AllocateFun(plan.Packages, tickets)
	require.Len(t, res.Assignments, 3)
	assert.Equal(t, domain.Amusement, res.Assignments[0].Ticket.Good.FunType())
	assert.Equal(t, domain.AlligatorWrestling, res.Assignments[1].Ticket.Good.FunType())
	assert.Equal(t, domain.Museum, res.Assignments[2].Ticket.Good.FunType())
}

func TestAllocatePackages_SkipsUnprofitableClient(t *testing.T) {
	c := makeClient(1, 1, 2, 0, 0, 0, 0)
	est := stubEstimator{closed: map[domain.Good]bool{}}
	for _, g := range domain.AllGoods() {
		if g.Kind == domain.KindFlight {
			est.closed[g] = true
		}
	}
	plan := AllocatePackages([]domain.Client{c}, est, nil)
	require.Len(t, plan.Packages, 1)
	assert.False(t, plan.Packages[0].Assigned())
}

func TestAllocatePackages_OwnedStockIsFree(t *testing.T) {
	in := good(t)(domain.FlightGood(2, true))
	out := good(t)(domain.FlightGood(3, false))
	night := good(t)(domain.HotelGood(2, domain.Budget))

	// Everything closed except what the client already owns.
	est := stubEstimator{closed: map[domain.Good]bool{}}
	for _, g := range domain.AllGoods() {
		est.closed[g] = true
	}
	stock := map[domain.Good]int{in: 1, out: 1, night: 1}

	clients := []domain.Client{makeClient(1, 1, 4, 50, 0, 0, 0), makeClient(2, 2, 3, 0, 0, 0, 0)}
	plan := AllocatePackages(clients, est, stock)

	first := plan.Packages[0]
	assert.Equal(t, 2, first.Arrival)
	assert.Equal(t, 3, first.Departure)
	assert.Equal(t, domain.Budget, first.Grade)
	assert.False(t, plan.Packages[1].Assigned(), "stock already used by the first client")
	assert.Equal(t, map[domain.Good]int{in: 1, out: 1, night: 1}, plan.FromStock)
	assert.Equal(t, 1, stock[in], "caller stock is not modified")
}

func TestAllocatePackages_NeverOverusesStock(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 50; round++ {
		stock := make(map[domain.Good]int)
		est := stubEstimator{closed: map[domain.Good]bool{}}
		for _, g := range domain.AllGoods() {
			if rng.IntN(3) == 0 {
				stock[g] = rng.IntN(3)
			}
			if rng.IntN(4) == 0 {
				est.closed[g] = true
			}
		}
		clients := make([]domain.Client, domain.Clients)
		for i := range clients {
			arr := 1 + rng.IntN(4)
			dep := arr + 1 + rng.IntN(domain.Days-arr)
			clients[i] = makeClient(i, arr, dep, 50+rng.IntN(100), rng.IntN(200), rng.IntN(200), rng.IntN(200))
		}

		plan := AllocatePackages(clients, est, stock)
		require.Len(t, plan.Packages, len(clients))
		for _, p := range plan.Packages {
			if !p.Assigned() {
				continue
			}
			assert.GreaterOrEqual(t, p.Arrival, 1)
			assert.LessOrEqual(t, p.Departure, domain.Days)
			assert.Less(t, p.Arrival, p.Departure)
		}
		for g, n := range plan.FromStock {
			assert.LessOrEqual(t, n, stock[g], "round %d good %s", round, g)
		}
	}
}

// --- SearchHotels ---

func openSlots(est Estimator) map[domain.Good]Slot {
	slots := make(map[domain.Good]Slot)
	for _, g := range domain.HotelGoods() {
		slots[g] = Slot{Price: est.EstimatedPrice(g)}
	}
	return slots
}

func closedSlots(stock int) map[domain.Good]Slot {
	slots := make(map[domain.Good]Slot)
	for _, g := range domain.HotelGoods() {
		slots[g] = Slot{Closed: true, Stock: stock}
	}
	return slots
}

func TestSearchHotels_AbundantStockCostsNothing(t *testing.T) {
	stays := []Stay{{1, 4, 100}, {2, 5, 0}, {1, 2, 30}, {3, 5, 90}}
	s := SearchHotels(stays, closedSlots(10))
	require.True(t, s.Feasible)
	assert.Zero(t, s.Cost)
	assert.Len(t, s.Grades, len(stays))
	assert.Equal(t, -1, s.Blocking)
	assert.Greater(t, s.Nodes, len(stays))
}

func TestSearchHotels_InfeasibleRoot(t *testing.T) {
	s := SearchHotels([]Stay{{1, 3, 100}}, closedSlots(0))
	assert.False(t, s.Feasible)
	assert.Equal(t, 0, s.Blocking)
	assert.Nil(t, s.Grades)
}

func TestSearchHotels_BlockingPackage(t *testing.T) {
	// One room of each grade on night 2, three guests need it.
	stays := []Stay{{2, 3, 0}, {2, 3, 0}, {2, 3, 0}}
	s := SearchHotels(stays, closedSlots(1))
	assert.False(t, s.Feasible)
	assert.Equal(t, 2, s.Blocking)
}

func TestSearchHotels_PremiumWorthItOnlyAbovePriceGap(t *testing.T) {
	slots := openSlots(stubEstimator{})
	// Gap is 40 per night, 80 for two nights.
	cheap := SearchHotels([]Stay{{1, 3, 70}}, slots)
	assert.Equal(t, []domain.Grade{domain.Budget}, cheap.Grades)
	assert.InDelta(t, 100, cheap.Cost, 1e-9)

	keen := SearchHotels([]Stay{{1, 3, 90}}, slots)
	assert.Equal(t, []domain.Grade{domain.Premium}, keen.Grades)
	assert.InDelta(t, 180, keen.Cost, 1e-9)
}

func TestSearchHotels_ClosedStockSteersGrades(t *testing.T) {
	slots := openSlots(stubEstimator{})
	ss := good(t)(domain.HotelGood(1, domain.Budget))
	tt := good(t)(domain.HotelGood(1, domain.Premium))
	slots[ss] = Slot{Closed: true, Stock: 1}
	slots[tt] = Slot{Price: 500}

	s := SearchHotels([]Stay{{1, 2, 0}, {1, 2, 0}}, slots)
	require.True(t, s.Feasible)
	assert.ElementsMatch(t, []domain.Grade{domain.Budget, domain.Premium}, s.Grades)
	assert.InDelta(t, 500, s.Cost, 1e-9)
}

func TestSearchHotels_NoStays(t *testing.T) {
	s := SearchHotels(nil, openSlots(stubEstimator{}))
	assert.True(t, s.Feasible)
	assert.Empty(t, s.Grades)
	assert.Zero(t, s.Cost)
}

// --- AllocateFun ---

func makePackage(t *testing.T, c domain.Client, arr, dep int) *domain.Package {
	t.Helper()
	p := domain.NewPackage(c)
	require.NoError(t, p.Assign(arr, dep, domain.Budget))
	return p
}

func TestAllocateFun_SameDayConflict(t *testing.T) {
	p := makePackage(t, makeClient(1, 1, 4, 0, 50, 150, 10), 1, 4)
	tickets := []Ticket{
		{ID: 1, Good: good(t)(domain.EntertainmentGood(1, domain.AlligatorWrestling))},
		{ID: 2, Good: good(t)(domain.EntertainmentGood(1, domain.Amusement))},
		{ID: 3, Good: good(t)(domain.EntertainmentGood(1, domain.Museum))},
	}
	res := AllocateFun([]*domain.Package{p}, tickets)

	require.Len(t, res.Assignments, 1)
	assert.Equal(t, 2, res.Assignments[0].Ticket.ID)
	day, ok := p.FunDay(domain.Amusement)
	assert.True(t, ok)
	assert.Equal(t, 1, day)
	require.Len(t, res.Unsold, 2)
	assert.Equal(t, domain.AlligatorWrestling, res.Unsold[0].Good.FunType())
}

func TestAllocateFun_TicketOutsideStayIsSold(t *testing.T) {
	p := makePackage(t, makeClient(1, 2, 3, 0, 100, 100, 100), 2, 3)
	mu := good(t)(domain.EntertainmentGood(4, domain.Museum))
	tickets := []Ticket{{ID: 1, Good: mu}, {ID: 2, Good: mu}}

	res := AllocateFun([]*domain.Package{p}, tickets)
	assert.Empty(t, res.Assignments)
	require.Len(t, res.Unsold, 1)
	assert.Equal(t, mu, res.Unsold[0].Good)
	assert.Len(t, res.Unsold[0].Tickets, 2)
}

func TestAllocateFun_NoConflictsInResult(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for round := 0; round < 50; round++ {
		var packages []*domain.Package
		for i := 0; i < domain.Clients; i++ {
			arr := 1 + rng.IntN(4)
			dep := arr + 1 + rng.IntN(domain.Days-arr)
			c := makeClient(i, arr, dep, 0, rng.IntN(200), rng.IntN(200), rng.IntN(200))
			packages = append(packages, makePackage(t, c, arr, dep))
		}
		var tickets []Ticket
		for id := 0; id < 12; id++ {
			day := 1 + rng.IntN(domain.Nights)
			ft := domain.FunTypes[rng.IntN(len(domain.FunTypes))]
			tickets = append(tickets, Ticket{ID: id, Good: good(t)(domain.EntertainmentGood(day, ft))})
		}

		res := AllocateFun(packages, tickets)

		type pkgDay struct{ pkg, day int }
		type pkgType struct {
			pkg int
			t   domain.FunType
		}
		days := map[pkgDay]bool{}
		types := map[pkgType]bool{}
		ids := map[int]bool{}
		for _, a := range res.Assignments {
			d := pkgDay{a.Package, a.Ticket.Good.Day}
			ty := pkgType{a.Package, a.Ticket.Good.FunType()}
			assert.False(t, days[d], "round %d: package %d twice on day %d", round, d.pkg, d.day)
			assert.False(t, types[ty], "round %d: package %d twice %s", round, ty.pkg, ty.t)
			assert.False(t, ids[a.Ticket.ID], "round %d: ticket %d twice", round, a.Ticket.ID)
			days[d], types[ty], ids[a.Ticket.ID] = true, true, true
		}

		sold := 0
		for _, lot := range res.Unsold {
			sold += len(lot.Tickets)
		}
		assert.Equal(t, len(tickets), sold+len(res.Assignments))
	}
}
