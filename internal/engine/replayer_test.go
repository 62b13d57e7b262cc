package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_PreservesOrder(t *testing.T) {
	in := []int{5, 3, 9, 1, 7}
	var out []int

	err := Replay(context.Background(), in, 0, func(_ int, v int) error {
		out = append(out, v)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReplay_Empty(t *testing.T) {
	called := false
	start := time.Now()
	err := Replay(context.Background(), []string{}, time.Hour, func(int, string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReplay_Paces(t *testing.T) {
	in := []int{1, 2, 3, 4}
	var stamps []time.Time

	start := time.Now()
	err := Replay(context.Background(), in, 80*time.Millisecond, func(int, int) error {
		stamps = append(stamps, time.Now())
		return nil
	})
	require.NoError(t, err)
	require.Len(t, stamps, 4)

	// пауза стоит перед каждой записью, включая первую
	assert.GreaterOrEqual(t, stamps[0].Sub(start), 20*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 15*time.Millisecond)
	}
}

func TestReplay_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	count := 0

	done := make(chan error, 1)
	go func() {
		done <- Replay(ctx, make([]int, 100), 100*time.Second, func(int, int) error {
			count++
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, count)
	case <-time.After(time.Second):
		t.Fatal("replay did not stop after cancel")
	}
}

func TestReplay_EmitErrorStops(t *testing.T) {
	boom := errors.New("observer gone")
	var seen []int
	err := Replay(context.Background(), []int{1, 2, 3}, 0, func(i int, v int) error {
		seen = append(seen, v)
		if v == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, seen)
}
