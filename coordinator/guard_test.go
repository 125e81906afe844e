package coordinator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3ll3d00d/jriver-bridge/mcws"
)

func TestDo_SuccessTriggersOneRefresh(t *testing.T) {
	client := newFakeClient()
	coord := New(client, withClock(newFakeClock().Now))

	var actionCalls int
	err := coord.Do(context.Background(), "play_pause", "Player", func(ctx context.Context) error {
		actionCalls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, actionCalls)

	// The refresh ran: the initial empty snapshot has been replaced.
	assert.NotNil(t, coord.Snapshot().ServerInfo)
}

func TestDo_ConnectivityFailureIsSwallowed(t *testing.T) {
	client := newFakeClient()
	coord := New(client, withClock(newFakeClock().Now))

	err := coord.Do(context.Background(), "stop", "Player", func(ctx context.Context) error {
		return fmt.Errorf("%w: connection refused", mcws.ErrCannotConnect)
	})
	assert.NoError(t, err)

	err = coord.Do(context.Background(), "stop", "Player", func(ctx context.Context) error {
		return fmt.Errorf("%w: 401 Unauthorized", mcws.ErrInvalidAuth)
	})
	assert.NoError(t, err)

	// No refresh happened for either failure.
	assert.Nil(t, coord.Snapshot().ServerInfo)
}

func TestDo_OtherErrorsPropagate(t *testing.T) {
	client := newFakeClient()
	coord := New(client, withClock(newFakeClock().Now))

	boom := errors.New("boom")
	err := coord.Do(context.Background(), "set_volume", "Player", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, coord.Snapshot().ServerInfo)
}

func TestDo_RefreshFailureDoesNotFailCommand(t *testing.T) {
	client := newFakeClient()
	client.aliveErr = mcws.ErrCannotConnect
	coord := New(client, withClock(newFakeClock().Now))

	err := coord.Do(context.Background(), "play", "Player", func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}
