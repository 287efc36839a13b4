package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

// Console implementa ports.Reporter.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Report imprime una partida terminada.
func (c *Console) Report(_ context.Context, s domain.GameSummary) error {
	if c.table {
		c.printTable(s)
		return nil
	}
	c.printCompact(s)
	return nil
}

// printCompact imprime una línea por partida.
func (c *Console) printCompact(s domain.GameSummary) {
	feasible := 0
	for _, r := range s.Clients {
		if r.Feasible {
			feasible++
		}
	}
	fmt.Fprintf(c.out, "[%s] clients %d/%d utility %d spend %.2f score %.2f replans %d\n",
		shortID(s.GameID), feasible, len(s.Clients), s.Utility, s.Spend, s.Score(), s.Replans)
}

func (c *Console) printTable(s domain.GameSummary) {
	fmt.Fprintf(c.out, "\n=== GAME %s ===\n", s.GameID)

	table := tablewriter.NewWriter(c.out)
	table.Header("Client", "Stay", "Hotel", "Entertainment", "OK", "Utility")
	for _, r := range s.Clients {
		stay := "-"
		if r.Arrival > 0 {
			stay = fmt.Sprintf("%d→%d", r.Arrival, r.Departure)
		}
		ok := "no"
		if r.Feasible {
			ok = "yes"
		}
		table.Append(
			fmt.Sprintf("%d", r.ClientID),
			stay,
			r.Grade.String(),
			funLabel(r.Fun),
			ok,
			fmt.Sprintf("%d", r.Utility),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "utility %d | spend $%.2f | score %.2f | replans %d\n",
		s.Utility, s.Spend, s.Score(), s.Replans)
}

// PrintTotals imprime la media de varias partidas.
func (c *Console) PrintTotals(games []domain.GameSummary) {
	if len(games) == 0 {
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Game", "Utility", "Spend", "Score")
	total := 0.0
	for i, s := range games {
		total += s.Score()
		table.Append(
			fmt.Sprintf("%d", i+1),
			shortID(s.GameID),
			fmt.Sprintf("%d", s.Utility),
			fmt.Sprintf("%.2f", s.Spend),
			fmt.Sprintf("%.2f", s.Score()),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "games %d | mean score %.2f\n", len(games), total/float64(len(games)))
}

// funLabel formatea el entretenimiento como "AW@1 MU@3", ordenado por tipo.
func funLabel(fun map[domain.FunType]int) string {
	if len(fun) == 0 {
		return "-"
	}
	types := make([]domain.FunType, 0, len(fun))
	for t := range fun {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s@%d", t, fun[t]))
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
