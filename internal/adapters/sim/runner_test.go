package sim

import (
	"context"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

func TestRunner_FastRunsWholeGame(t *testing.T) {
	ex, _ := makeExchange(t)
	var ticks []int
	r := NewRunner(fakeclock.NewFakeClock(time.Now()), ex, 0, func(tick int) { ticks = append(ticks, tick) })

	require.NoError(t, r.Run(context.Background()))

	assert.True(t, ex.Done())
	require.Len(t, ticks, domain.FlightHorizon+1)
	assert.Equal(t, 0, ticks[0])
	assert.Equal(t, domain.FlightHorizon, ticks[len(ticks)-1])
}

func TestRunner_TicksFollowClock(t *testing.T) {
	ex, _ := makeExchange(t)
	clk := fakeclock.NewFakeClock(time.Now())
	ticks := make(chan int, 4)
	r := NewRunner(clk, ex, 10*time.Second, func(tick int) { ticks <- tick })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Equal(t, 0, <-ticks)
	clk.WaitForWatcherAndIncrement(10 * time.Second)
	assert.Equal(t, 1, <-ticks)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
