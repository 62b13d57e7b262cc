package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memStorage struct {
	mu      sync.Mutex
	batches [][]AccessEvent
	err     error
}

func (m *memStorage) WriteBatch(_ context.Context, events []AccessEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]AccessEvent(nil), events...))
	return m.err
}

func (m *memStorage) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestTrail_FlushOnStop(t *testing.T) {
	store := &memStorage{}
	trail := NewTrail(store, Options{BatchSize: 100, FlushInterval: time.Hour}, zap.NewNop())
	trail.Start()

	for i := 0; i < 10; i++ {
		trail.Log(AccessEvent{ID: fmt.Sprint(i), Action: ActionTemporaryAdd})
	}
	trail.Stop()

	assert.Equal(t, 10, store.total())
	assert.False(t, store.batches[0][0].Timestamp.IsZero(), "timestamp is filled in")

	// после остановки события отбрасываются, паники нет
	trail.Log(AccessEvent{ID: "late"})
	trail.Stop()
	assert.Equal(t, 10, store.total())
}

func TestTrail_BatchSize(t *testing.T) {
	store := &memStorage{}
	trail := NewTrail(store, Options{BatchSize: 3, FlushInterval: time.Hour}, zap.NewNop())
	trail.Start()

	for i := 0; i < 7; i++ {
		trail.Log(AccessEvent{ID: fmt.Sprint(i)})
	}
	trail.Stop()

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 3)
	assert.Len(t, store.batches[1], 3)
	assert.Len(t, store.batches[2], 1)
}

func TestTrail_FlushOnTicker(t *testing.T) {
	store := &memStorage{}
	trail := NewTrail(store, Options{BatchSize: 100, FlushInterval: 10 * time.Millisecond}, zap.NewNop())
	trail.Start()
	defer trail.Stop()

	trail.Log(AccessEvent{ID: "1"})
	assert.Eventually(t, func() bool { return store.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTrail_Overflow(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "fill"})
	store := &memStorage{}

	// воркер не запущен: буфер на 2 события
	trail := NewTrail(store, Options{BufferSize: 2, BufferFill: gauge}, zap.New(core))
	for i := 0; i < 3; i++ {
		trail.Log(AccessEvent{ID: fmt.Sprint(i), DeviceID: "aa:bb"})
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(gauge))
	assert.Equal(t, 1, logs.FilterMessage("audit_buffer_overflow").Len())

	trail.Start()
	trail.Stop()
	assert.Equal(t, 2, store.total())
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))
}

func TestTrail_StorageErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := &memStorage{err: errors.New("db down")}
	trail := NewTrail(store, Options{}, zap.New(core))
	trail.Start()
	trail.Log(AccessEvent{ID: "1"})
	trail.Stop()

	assert.Equal(t, 1, logs.FilterMessage("audit flush failed").Len())
}

func TestLogStorage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogStorage(zap.New(core))
	require.NoError(t, s.WriteBatch(context.Background(), []AccessEvent{
		{ID: "1", Action: ActionTemporaryRemove, DeviceID: "aa:bb", Outcome: OutcomeNotFound},
	}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "aa:bb", logs.All()[0].ContextMap()["device_id"])
}
