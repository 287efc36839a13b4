package bidding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tacbot/internal/auction"
	"github.com/alejandrodnm/tacbot/internal/domain"
	"github.com/alejandrodnm/tacbot/internal/forecast/hotel"
)

type nopStore struct{}

func (nopStore) Load(context.Context) ([]domain.GameRecord, error)   { return nil, nil }
func (nopStore) Checkpoint(context.Context, domain.GameRecord) error { return nil }
func (nopStore) Save(context.Context, domain.GameRecord) error       { return nil }
func (nopStore) Discard(context.Context, string) error               { return nil }
func (nopStore) Close() error                                        { return nil }

func makeHotelController(t *testing.T, day int) (*HotelController, *auction.Session, *fakeExchange, *domain.Inventory) {
	t.Helper()
	g, err := domain.HotelGood(day, domain.Budget)
	require.NoError(t, err)
	h, err := hotel.NewHistory(context.Background(), nopStore{})
	require.NoError(t, err)
	h.StartGame("game-1", time.Now())

	ex := &fakeExchange{}
	s := auction.NewSession(g, ex)
	inv := domain.NewInventory()
	return NewHotelController(s, inv, h, DefaultHotelConfig()), s, ex, inv
}

func TestHotelController_HoldingBidBeforeFirstQuote(t *testing.T) {
	c, _, ex, inv := makeHotelController(t, 1)
	c.AddPackage(makePackage(t, 1, 1, 3))
	c.AddPackage(makePackage(t, 2, 1, 2))
	c.Start(context.Background())

	// Six units held at 1.01, two intended at max(100, 75) * 1.5.
	require.Len(t, ex.subs, 1)
	assert.True(t, bid(6, 1.01, 2, 150).Equal(ex.last().Bid), "got %s", ex.last().Bid)
	assert.Equal(t, 2, inv.Intentions(c.Good()))
}

func TestHotelController_DefendsHypotheticalWins(t *testing.T) {
	c, s, ex, _ := makeHotelController(t, 1)
	c.AddPackage(makePackage(t, 1, 1, 3))
	c.Start(context.Background())
	accept(s, ex.last())

	// Minute 1: next price 150*50/100 = 75, raised to ask+75 = 125, marked up 1.1.
	quote(s, 6, 50, 3)

	require.Len(t, ex.subs, 2)
	assert.True(t, bid(2, 51, 1, 137.5).Equal(ex.last().Bid), "got %s", ex.last().Bid)
}

func TestHotelController_UnchangedBidNotResent(t *testing.T) {
	c, s, ex, _ := makeHotelController(t, 1)
	c.AddPackage(makePackage(t, 1, 1, 3))
	c.Start(context.Background())
	accept(s, ex.last())

	c.Refresh()
	assert.Len(t, ex.subs, 1)
}

func TestHotelController_CloseBooksRooms(t *testing.T) {
	c, s, ex, inv := makeHotelController(t, 1)
	first := makePackage(t, 1, 1, 3)
	second := makePackage(t, 2, 1, 2)
	c.AddPackage(first)
	c.AddPackage(second)

	var closed []domain.Good
	c.OnClosed = func(g domain.Good) { closed = append(closed, g) }
	c.Start(context.Background())
	accept(s, ex.last())
	quote(s, 12, 80, 1)
	accept(s, ex.last())

	transact(s, 1, 80)
	s.Handle(domain.Event{Kind: domain.EventClosed, Good: s.Good()})

	assert.True(t, first.NightBooked(1))
	assert.False(t, second.NightBooked(1))
	assert.Equal(t, 1, inv.Held(c.Good()))
	assert.Equal(t, 1, inv.Allocated(c.Good()))
	assert.Equal(t, []domain.Good{c.Good()}, closed)
	assert.True(t, c.Closed())
	assert.Zero(t, c.PurchaseProbability())
	assert.InDelta(t, 80, c.EstimatedPrice(), 1e-9)
}

func TestHotelController_ClosingQuoteSendsNoBid(t *testing.T) {
	c, s, ex, _ := makeHotelController(t, 1)
	c.AddPackage(makePackage(t, 1, 1, 3))
	c.Start(context.Background())
	accept(s, ex.last())

	s.Handle(domain.Event{
		Kind:  domain.EventQuoteUpdated,
		Good:  s.Good(),
		Quote: domain.Quote{Good: s.Good(), AskPrice: 90, Tick: 6, Closed: true},
	})

	assert.Len(t, ex.subs, 1)
	assert.InDelta(t, 90, c.history.Current().Curves[c.Good()].Prices[1], 1e-9)
}

func TestHotelController_PurchaseProbability(t *testing.T) {
	for day, want := range map[int]float64{1: 0.95, 2: 0.9, 3: 0.9, 4: 0.95} {
		c, _, _, _ := makeHotelController(t, day)
		assert.InDelta(t, want, c.PurchaseProbability(), 1e-9, "night %d", day)
	}
}
