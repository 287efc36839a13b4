package agent_test

import (
	"context"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tacbot/internal/adapters/sim"
	"github.com/alejandrodnm/tacbot/internal/adapters/storage"
	"github.com/alejandrodnm/tacbot/internal/application/agent"
	"github.com/alejandrodnm/tacbot/internal/domain"
)

func playGame(t *testing.T, store *storage.HistoryStore, seed uint64) (domain.GameSummary, *sim.Exchange, *agent.Agent) {
	t.Helper()
	ctx := context.Background()

	cfg := sim.DefaultConfig()
	cfg.Seed = seed
	ex := sim.New(cfg)

	a, err := agent.New(ctx, agent.DefaultConfig(), ex, store)
	require.NoError(t, err)
	unsubscribe := ex.Subscribe(a.Handle)
	defer unsubscribe()

	require.NoError(t, a.Start(ctx, agent.GameStart{
		StartedAt: time.Date(2026, 1, 1, 12, int(seed), 0, 0, time.UTC),
		Clients:   sim.NewClients(seed).Clients(),
		Endowment: ex.Endowment(),
	}))

	runner := sim.NewRunner(fakeclock.NewFakeClock(time.Now()), ex, 0, a.Advance)
	require.NoError(t, runner.Run(ctx))

	summary, err := a.Stop(ctx)
	require.NoError(t, err)
	return summary, ex, a
}

func TestGame_PlaysAgainstSimulator(t *testing.T) {
	store, err := storage.NewHistoryStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	summary, ex, a := playGame(t, store, 7)

	require.Len(t, summary.Clients, domain.Clients)
	assert.InDelta(t, ex.Spend(), summary.Spend, 0.01)

	utility := 0
	for _, r := range summary.Clients {
		utility += r.Utility
		if r.Feasible {
			assert.Positive(t, r.Utility, "client %d", r.ClientID)
		}
	}
	assert.Equal(t, utility, summary.Utility)

	inv := a.Inventory()
	for _, g := range domain.AllGoods() {
		assert.GreaterOrEqual(t, inv.Unused(g), 0, "%s", g)
		assert.LessOrEqual(t, inv.Allocated(g), inv.Held(g), "%s", g)
	}

	games, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestGame_HistoryCarriesAcrossGames(t *testing.T) {
	store, err := storage.NewHistoryStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	first, _, _ := playGame(t, store, 3)
	second, _, _ := playGame(t, store, 4)
	assert.NotEqual(t, first.GameID, second.GameID)

	games, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, first.GameID, games[0].ID)
}
