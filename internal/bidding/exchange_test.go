package bidding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tacbot/internal/auction"
	"github.com/alejandrodnm/tacbot/internal/domain"
)

type fakeExchange struct {
	subs []domain.BidSubmission
}

func (f *fakeExchange) AskPrice(domain.Good) float64           { return 0 }
func (f *fakeExchange) Quote(domain.Good) (domain.Quote, bool) { return domain.Quote{}, false }
func (f *fakeExchange) SubmitBid(_ context.Context, sub domain.BidSubmission) error {
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeExchange) last() domain.BidSubmission { return f.subs[len(f.subs)-1] }

// lastFor returns the latest submission for g.
func (f *fakeExchange) lastFor(t *testing.T, g domain.Good) domain.BidSubmission {
	t.Helper()
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].Good == g {
			return f.subs[i]
		}
	}
	require.FailNow(t, "no submission", "good %s", g)
	return domain.BidSubmission{}
}

func accept(s *auction.Session, sub domain.BidSubmission) {
	s.Handle(domain.Event{Kind: domain.EventBidAccepted, Good: s.Good(), Revision: sub.Revision})
}

func quote(s *auction.Session, tick int, ask float64, hqw int) {
	s.Handle(domain.Event{
		Kind:  domain.EventQuoteUpdated,
		Good:  s.Good(),
		Quote: domain.Quote{Good: s.Good(), AskPrice: ask, Tick: tick, HQW: hqw},
	})
}

func transact(s *auction.Session, qty int, price float64) {
	s.Handle(domain.Event{Kind: domain.EventTransaction, Good: s.Good(), Quantity: qty, Price: price})
}

func makePackage(t *testing.T, id, arr, dep int) *domain.Package {
	t.Helper()
	p := domain.NewPackage(domain.Client{
		ID:           id,
		ArrivalDay:   arr,
		DepartureDay: dep,
		HotelPremium: 100,
		FunPremium: map[domain.FunType]int{
			domain.AlligatorWrestling: 100,
			domain.Amusement:          50,
			domain.Museum:             0,
		},
	})
	require.NoError(t, p.Assign(arr, dep, domain.Budget))
	return p
}

func bid(levels ...float64) domain.Bid {
	b := domain.NewBid()
	for i := 0; i+1 < len(levels); i += 2 {
		b.Add(int(levels[i]), levels[i+1])
	}
	return b
}
