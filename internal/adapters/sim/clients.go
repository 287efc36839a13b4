package sim

import (
	"math/rand/v2"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Clients draws client preferences the way the market server does:
// arrival on days 1..4, departure after it, hotel premium in [50,150] and
// entertainment premiums in [0,200].
type Clients struct {
	clients []domain.Client
}

// NewClients draws domain.Clients preferences from seed.
func NewClients(seed uint64) *Clients {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]domain.Client, 0, domain.Clients)
	for id := 1; id <= domain.Clients; id++ {
		arr := 1 + rng.IntN(domain.Days-1)
		dep := arr + 1 + rng.IntN(domain.Days-arr)
		fun := make(map[domain.FunType]int, len(domain.FunTypes))
		for _, t := range domain.FunTypes {
			fun[t] = rng.IntN(201)
		}
		out = append(out, domain.Client{
			ID:           id,
			ArrivalDay:   arr,
			DepartureDay: dep,
			HotelPremium: 50 + rng.IntN(101),
			FunPremium:   fun,
		})
	}
	return &Clients{clients: out}
}

// Clients implements ports.ClientSource.
func (c *Clients) Clients() []domain.Client {
	out := make([]domain.Client, len(c.clients))
	copy(out, c.clients)
	return out
}
