package domain

import "fmt"

// Inventory keeps per-good counters for one game.
//
// held is what we own, unused the part of it not yet given to a package,
// intentions what we still want to buy. held-unused is the allocated count
// and never exceeds held.
type Inventory struct {
	held       map[Good]int
	unused     map[Good]int
	intentions map[Good]int
}

// NewInventory returns empty counters.
func NewInventory() *Inventory {
	return &Inventory{
		held:       make(map[Good]int),
		unused:     make(map[Good]int),
		intentions: make(map[Good]int),
	}
}

func (inv *Inventory) Held(g Good) int       { return inv.held[g] }
func (inv *Inventory) Unused(g Good) int     { return inv.unused[g] }
func (inv *Inventory) Intentions(g Good) int { return inv.intentions[g] }

// Allocated is the number of held units assigned to packages.
func (inv *Inventory) Allocated(g Good) int { return inv.held[g] - inv.unused[g] }

// Won records a transaction. A negative qty is a sale and comes out of
// unused stock.
func (inv *Inventory) Won(g Good, qty int) {
	inv.held[g] += qty
	inv.unused[g] += qty
	if inv.unused[g] < 0 {
		inv.unused[g] = 0
	}
	if inv.held[g] < 0 {
		inv.held[g] = 0
	}
}

// Allocate moves n unused units to a package.
func (inv *Inventory) Allocate(g Good, n int) error {
	if n > inv.unused[g] {
		return fmt.Errorf("domain.Inventory.Allocate: %s want %d have %d: %w", g, n, inv.unused[g], ErrInfeasiblePlan)
	}
	inv.unused[g] -= n
	return nil
}

// ResetAllocations returns every held unit to unused stock.
func (inv *Inventory) ResetAllocations() {
	clear(inv.unused)
	for g, n := range inv.held {
		inv.unused[g] = n
	}
}

// Release returns every held unit of g to unused stock.
func (inv *Inventory) Release(g Good) {
	inv.unused[g] = inv.held[g]
}

// AddIntention adjusts the desired quantity of g.
func (inv *Inventory) AddIntention(g Good, n int) {
	inv.intentions[g] += n
	if inv.intentions[g] <= 0 {
		delete(inv.intentions, g)
	}
}

// ResetIntentions clears every intention. Re-plans rebuild them from scratch.
func (inv *Inventory) ResetIntentions() { clear(inv.intentions) }

// Stock returns a copy of the unused counters.
func (inv *Inventory) Stock() map[Good]int {
	out := make(map[Good]int, len(inv.unused))
	for g, n := range inv.unused {
		if n > 0 {
			out[g] = n
		}
	}
	return out
}
