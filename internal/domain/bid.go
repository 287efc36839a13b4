package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Quote is a snapshot of one auction's market state.
type Quote struct {
	Good     Good
	AskPrice float64
	BidPrice float64
	Tick     int
	// HQW is the hotel "hypothetical quantity won": units we would win if the
	// auction closed now. Zero for other auctions.
	HQW    int
	Closed bool
}

// BidPoint is one price level of a bid.
type BidPoint struct {
	Price    float64
	Quantity int // positive = buy, negative = sell
}

// Bid maps price → signed quantity. The zero value is not usable; use NewBid.
type Bid map[float64]int

// NewBid returns an empty bid.
func NewBid() Bid { return make(Bid) }

// priceKey rounds prices to cents so float noise never splits a level.
func priceKey(p float64) float64 {
	return math.Round(p*100) / 100
}

// Add adjusts the quantity at a price level, dropping levels that reach zero.
func (b Bid) Add(qty int, price float64) {
	k := priceKey(price)
	b[k] += qty
	if b[k] == 0 {
		delete(b, k)
	}
}

// Clone returns an independent copy. Cloning a nil bid yields an empty bid.
func (b Bid) Clone() Bid {
	out := make(Bid, len(b))
	for p, q := range b {
		out[p] = q
	}
	return out
}

// Points returns the price levels sorted by descending price.
func (b Bid) Points() []BidPoint {
	pts := make([]BidPoint, 0, len(b))
	for p, q := range b {
		pts = append(pts, BidPoint{Price: p, Quantity: q})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Price > pts[j].Price })
	return pts
}

// Quantity returns the net signed quantity across all levels.
func (b Bid) Quantity() int {
	total := 0
	for _, q := range b {
		total += q
	}
	return total
}

// Equal reports whether both bids hold the same levels.
func (b Bid) Equal(o Bid) bool {
	if len(b) != len(o) {
		return false
	}
	for p, q := range b {
		if o[p] != q {
			return false
		}
	}
	return true
}

// ReduceBuys removes n units of buy quantity, highest prices first.
// Returns the number actually removed.
func (b Bid) ReduceBuys(n int) int {
	removed := 0
	for _, pt := range b.Points() {
		if removed == n {
			break
		}
		if pt.Quantity <= 0 {
			continue
		}
		take := min(pt.Quantity, n-removed)
		b.Add(-take, pt.Price)
		removed += take
	}
	return removed
}

// ReduceSells removes n units of sell quantity, lowest prices first.
func (b Bid) ReduceSells(n int) int {
	pts := b.Points()
	removed := 0
	for i := len(pts) - 1; i >= 0 && removed < n; i-- {
		if pts[i].Quantity >= 0 {
			continue
		}
		take := min(-pts[i].Quantity, n-removed)
		b.Add(take, pts[i].Price)
		removed += take
	}
	return removed
}

// String renders the bid in exchange notation: ((qty price) ...).
func (b Bid) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, pt := range b.Points() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "(%d %.2f)", pt.Quantity, pt.Price)
	}
	sb.WriteByte(')')
	return sb.String()
}

// BidSubmission is one revision of a bid sent to the exchange.
type BidSubmission struct {
	Revision uuid.UUID
	Good     Good
	Bid      Bid
}
