package client

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
)

var errUnavailable = errors.New("connection refused")

// flakyAcknowledger fails a number of times before answering.
type flakyAcknowledger struct {
	// failures is how many calls fail before success.
	failures int
	// calls counts Acknowledge invocations.
	calls int
	// result is returned once the daemon answers.
	result bool
}

func (f *flakyAcknowledger) Acknowledge(context.Context, *domain.Actor) (bool, error) {
	f.calls++
	if f.calls <= f.failures {
		return false, errUnavailable
	}

	return f.result, nil
}

func TestAcknowledge_RetriesUntilReachable(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		fake := &flakyAcknowledger{failures: 2, result: true}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		acknowledged, err := acknowledge(ctx, fake, &domain.Actor{Hostname: "h", Username: "u"}, true)
		require.NoError(t, err)
		require.True(t, acknowledged)
		require.Equal(t, 3, fake.calls)
	})
}

func TestAcknowledge_GivesUp(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		fake := &flakyAcknowledger{failures: 100}

		ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
		defer cancel()

		_, err := acknowledge(ctx, fake, nil, true)
		require.ErrorIs(t, err, errUnavailable)
		require.Equal(t, 4, fake.calls)
	})
}

func TestAcknowledge_SingleAttempt(t *testing.T) {
	t.Parallel()

	fake := &flakyAcknowledger{failures: 1}

	_, err := acknowledge(context.Background(), fake, nil, false)
	require.ErrorIs(t, err, errUnavailable)
	require.Equal(t, 1, fake.calls)

	acknowledged, err := acknowledge(context.Background(), fake, nil, false)
	require.NoError(t, err)
	require.False(t, acknowledged)
}
