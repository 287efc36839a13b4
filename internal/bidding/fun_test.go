package bidding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tacbot/internal/auction"
	"github.com/alejandrodnm/tacbot/internal/domain"
)

func makeFun(t *testing.T) (*FunController, map[domain.Good]*auction.Session, *fakeExchange, *domain.Inventory) {
	t.Helper()
	ex := &fakeExchange{}
	sessions := make(map[domain.Good]*auction.Session)
	var list []*auction.Session
	for _, g := range domain.AllGoods() {
		if g.Kind != domain.KindFun {
			continue
		}
		s := auction.NewSession(g, ex)
		sessions[g] = s
		list = append(list, s)
	}
	inv := domain.NewInventory()
	c := NewFunController(list, inv, DefaultFunConfig())
	c.Start(context.Background())
	return c, sessions, ex, inv
}

func funGood(t *testing.T, day int, ft domain.FunType) domain.Good {
	t.Helper()
	g, err := domain.EntertainmentGood(day, ft)
	require.NoError(t, err)
	return g
}

func TestFunController_BuysMissingEntertainment(t *testing.T) {
	c, _, ex, _ := makeFun(t)
	p := makePackage(t, 1, 1, 3)

	c.Fulfil([]*domain.Package{p})

	// AW takes the first free day, AM the next; MU has no premium.
	require.Len(t, ex.subs, 2)
	aw := ex.lastFor(t, funGood(t, 1, domain.AlligatorWrestling))
	am := ex.lastFor(t, funGood(t, 2, domain.Amusement))
	assert.True(t, bid(1, 80).Equal(aw.Bid), "got %s", aw.Bid)
	assert.True(t, bid(1, 40).Equal(am.Bid), "got %s", am.Bid)
	assert.Equal(t, domain.Reserved, p.DayStatus(1))
	assert.Equal(t, domain.Reserved, p.DayStatus(2))
}

func TestFunController_TransactionGoesToBuyer(t *testing.T) {
	c, sessions, ex, inv := makeFun(t)
	p := makePackage(t, 1, 1, 3)
	c.Fulfil([]*domain.Package{p})

	g := funGood(t, 1, domain.AlligatorWrestling)
	s := sessions[g]
	accept(s, ex.lastFor(t, g))
	transact(s, 1, 80)

	day, ok := p.FunDay(domain.AlligatorWrestling)
	require.True(t, ok)
	assert.Equal(t, 1, day)
	assert.Equal(t, domain.InUse, p.DayStatus(1))
	assert.Equal(t, 1, inv.Held(g))
	assert.Equal(t, 1, inv.Allocated(g))
	assert.Len(t, c.Tickets(), 1)
	assert.Zero(t, c.Orders()[g])
}

func TestFunController_OwnedTicketsAssignedBeforeBuying(t *testing.T) {
	c, _, ex, inv := makeFun(t)
	g := funGood(t, 2, domain.AlligatorWrestling)
	c.AddTickets(g, 1)
	p := makePackage(t, 1, 1, 3)

	res := c.Fulfil([]*domain.Package{p})

	require.Len(t, res.Assignments, 1)
	day, ok := p.FunDay(domain.AlligatorWrestling)
	require.True(t, ok)
	assert.Equal(t, 2, day)
	assert.Equal(t, 1, inv.Allocated(g))

	// Only AM is left to buy and day 2 is taken.
	require.Len(t, ex.subs, 1)
	assert.Equal(t, funGood(t, 1, domain.Amusement), ex.last().Good)
}

func TestFunController_SellsUnusedTickets(t *testing.T) {
	c, sessions, ex, inv := makeFun(t)
	g := funGood(t, 4, domain.Museum)
	c.AddTickets(g, 2)

	c.Fulfil(nil)

	require.Len(t, ex.subs, 1)
	assert.True(t, bid(-2, 100).Equal(ex.last().Bid), "got %s", ex.last().Bid)

	s := sessions[g]
	accept(s, ex.last())
	transact(s, -1, 100)

	assert.Len(t, c.Tickets(), 1)
	assert.Equal(t, 1, inv.Held(g))
	assert.Equal(t, -1, c.Orders()[g])
	assert.True(t, bid(-1, 100).Equal(s.Active()), "got %s", s.Active())
}

func TestFunController_CancelWaitsForResolution(t *testing.T) {
	c, sessions, ex, _ := makeFun(t)
	p := makePackage(t, 1, 1, 2)
	c.Fulfil([]*domain.Package{p})

	g := funGood(t, 1, domain.AlligatorWrestling)
	s := sessions[g]
	require.Len(t, ex.subs, 1)

	c.Clear()
	require.Len(t, ex.subs, 1, "cancel must wait for the outstanding revision")
	assert.Equal(t, domain.Free, p.DayStatus(1))

	accept(s, ex.last())

	require.Len(t, ex.subs, 2)
	assert.Empty(t, ex.last().Bid)
	accept(s, ex.last())
	assert.Empty(t, c.Orders())
}

func TestFunController_ClosedAuctionNotUsed(t *testing.T) {
	c, sessions, ex, _ := makeFun(t)
	g := funGood(t, 1, domain.AlligatorWrestling)
	sessions[g].Handle(domain.Event{Kind: domain.EventClosed, Good: g})
	p := makePackage(t, 1, 1, 3)

	c.Fulfil([]*domain.Package{p})

	assert.Zero(t, c.PurchaseProbability(g))
	aw := ex.lastFor(t, funGood(t, 2, domain.AlligatorWrestling))
	assert.True(t, bid(1, 80).Equal(aw.Bid))
}
