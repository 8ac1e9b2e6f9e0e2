package unit

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/multirelease/internal/engine"
)

func TestResult_WriteOnce(t *testing.T) {
	t.Parallel()

	u := &Unit{Name: "pkg-a"}

	_, ok := u.Result()
	assert.False(t, ok, "pending unit must not expose a result")

	first := Result{Status: StatusReleased, Outcome: &engine.Outcome{}}
	assert.True(t, u.SetResult(first))

	// The second write loses, whatever it carries.
	assert.False(t, u.SetResult(Result{Status: StatusFailed, Err: errors.New("late")}))

	got, ok := u.Result()
	require.True(t, ok)
	assert.Equal(t, StatusReleased, got.Status)
	assert.True(t, got.Released())
	assert.NoError(t, got.Err)
}

func TestResult_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	u := &Unit{Name: "pkg-a"}

	var wg sync.WaitGroup
	wins := make(chan Status, 10)
	for i := 0; i < 10; i++ {
		status := StatusSkipped
		if i%2 == 0 {
			status = StatusFailed
		}
		wg.Add(1)
		go func(s Status) {
			defer wg.Done()
			if u.SetResult(Result{Status: s}) {
				wins <- s
			}
		}(status)
	}
	wg.Wait()
	close(wins)

	var winners []Status
	for s := range wins {
		winners = append(winners, s)
	}
	require.Len(t, winners, 1, "exactly one writer must win")

	got, ok := u.Result()
	require.True(t, ok)
	assert.Equal(t, winners[0], got.Status)
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "released", StatusReleased.String())
	assert.Equal(t, "failed", StatusFailed.String())
}
