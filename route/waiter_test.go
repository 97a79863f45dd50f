package route

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgroute "github.com/pgstack/go-pgroute"
	"github.com/pgstack/go-pgroute/test_helpers"
)

func TestWaitCaughtUpImmediate(t *testing.T) {
	replica := test_helpers.NewFakeReplica("replica1")
	replica.SetReplayPosition(pgroute.Position(0x2000))

	err := WaitCaughtUp(context.Background(), replica, pgroute.Position(0x1000), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, replica.PositionCalls())
}

func TestWaitCaughtUpPollsUntilReached(t *testing.T) {
	replica := test_helpers.NewFakeReplica("replica1")

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- WaitCaughtUp(ctx, replica, pgroute.Position(0x1000), 5*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	replica.SetReplayPosition(pgroute.Position(0x1000))

	require.NoError(t, <-done)
	assert.Greater(t, replica.PositionCalls(), 1)
}

func TestWaitCaughtUpGivesUpOnDeadline(t *testing.T) {
	replica := test_helpers.NewFakeReplica("replica1")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := WaitCaughtUp(ctx, replica, pgroute.Position(0x1000), 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "gave up waiting")
}

func TestWaitCaughtUpReportsLastProbeError(t *testing.T) {
	replica := test_helpers.NewFakeReplica("replica1")
	replica.SetPositionError(pgroute.ClientError{
		Code: pgroute.ErrPositionUnavailable, Msg: "replay position query timed out",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := WaitCaughtUp(ctx, replica, pgroute.Position(0x1000), 5*time.Millisecond)
	require.Error(t, err)

	var clierr pgroute.ClientError
	require.ErrorAs(t, err, &clierr)
	assert.Equal(t, uint32(pgroute.ErrPositionUnavailable), clierr.Code)
}
