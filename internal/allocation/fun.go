package allocation

import (
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Ticket is one owned entertainment ticket.
type Ticket struct {
	ID   int
	Good domain.Good
}

// FunAssignment gives a ticket to the package at index Package.
type FunAssignment struct {
	Package int
	Ticket  Ticket
	Value   int
}

// SaleLot is a group of unsold tickets of one good.
type SaleLot struct {
	Good    domain.Good
	Tickets []Ticket
}

// FunResult is the outcome of AllocateFun.
type FunResult struct {
	Assignments []FunAssignment
	Unsold      []SaleLot
}

func (a FunAssignment) conflictsWith(o FunAssignment) bool {
	if a.Ticket.ID == o.Ticket.ID {
		return true
	}
	return a.Package == o.Package &&
		(a.Ticket.Good.Day == o.Ticket.Good.Day || a.Ticket.Good.FunType() == o.Ticket.Good.FunType())
}

// AllocateFun assigns owned tickets to packages greedily by client premium.
// Every ticket whose day falls in a package's stay, of a type the package
// does not hold yet, is a candidate; the most valuable candidate is committed
// and everything conflicting with it dropped, until none remain. Committed
// tickets are recorded on the packages. Tickets nobody takes are grouped by
// good for sale.
func AllocateFun(packages []*domain.Package, tickets []Ticket) FunResult {
	var cands []FunAssignment
	for i, p := range packages {
		for _, tk := range tickets {
			t := tk.Good.FunType()
			if tk.Good.Kind != domain.KindFun || !p.InStay(tk.Good.Day) {
				continue
			}
			if _, held := p.FunDay(t); held || p.DayStatus(tk.Good.Day) == domain.InUse {
				continue
			}
			cands = append(cands, FunAssignment{Package: i, Ticket: tk, Value: p.Client.Premium(t)})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Value > cands[j].Value })

	var res FunResult
	for len(cands) > 0 {
		pick := cands[0]
		res.Assignments = append(res.Assignments, pick)
		cands = lo.Filter(cands[1:], func(c FunAssignment, _ int) bool { return !pick.conflictsWith(c) })
	}

	for _, a := range res.Assignments {
		if err := packages[a.Package].SetFun(a.Ticket.Good.FunType(), a.Ticket.Good.Day); err != nil {
			slog.Warn("allocation: fun ticket rejected", "ticket", a.Ticket.ID, "err", err)
		}
	}

	used := lo.SliceToMap(res.Assignments, func(a FunAssignment) (int, bool) { return a.Ticket.ID, true })
	unsold := lo.Filter(tickets, func(tk Ticket, _ int) bool { return !used[tk.ID] && tk.Good.Kind == domain.KindFun })
	groups := lo.GroupBy(unsold, func(tk Ticket) domain.Good { return tk.Good })
	for g, tks := range groups {
		res.Unsold = append(res.Unsold, SaleLot{Good: g, Tickets: tks})
	}
	sort.Slice(res.Unsold, func(i, j int) bool {
		a, b := res.Unsold[i].Good, res.Unsold[j].Good
		if a.Sub != b.Sub {
			return a.Sub < b.Sub
		}
		return a.Day < b.Day
	})
	return res
}
