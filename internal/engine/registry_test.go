package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/floorwatch/internal/domain"
)

func testDirectory() Directory {
	machineLoc := domain.NewLocation(51.460684, -0.932335)
	return Directory{
		Employees: []domain.Entity{
			{ID: "AA:BB", Name: "Alice", Zone: "Apple", Role: "Engineer", Floor: "3rd Floor"},
			{ID: "dd:ee", Name: "Dmitry", Zone: "Nvidia", Role: "Technician"},
		},
		Machines: []domain.Entity{
			{ID: "28:3A:4D:31:A1:8D", Name: "Lithography Systems", Zone: "Samsung", Floor: "Ground Floor", MachineID: "49", Location: &machineLoc},
		},
		Permanent: []string{"aa:bb", "28:3a:4d:31:a1:8d"},
	}
}

func newTestRegistry(t *testing.T) *IdentityRegistry {
	t.Helper()
	reg, err := NewIdentityRegistry(testDirectory(), nil)
	require.NoError(t, err)
	return reg
}

func TestRegistry_Resolve(t *testing.T) {
	reg := newTestRegistry(t)

	e, err := reg.Resolve("Aa:Bb")
	require.NoError(t, err)
	assert.Equal(t, "Alice", e.Name)
	assert.Equal(t, "aa:bb", e.ID)
	assert.Equal(t, domain.KindEmployee, e.Kind)

	m, err := reg.Resolve("28:3a:4d:31:a1:8d")
	require.NoError(t, err)
	assert.Equal(t, domain.KindMachine, m.Kind)

	_, err = reg.Resolve("ff:ff")
	assert.ErrorIs(t, err, domain.ErrUnresolvedIdentity)

	m, err = reg.ResolveMachine("49")
	require.NoError(t, err)
	assert.Equal(t, "28:3a:4d:31:a1:8d", m.ID)

	_, err = reg.ResolveMachine("50")
	assert.ErrorIs(t, err, domain.ErrUnresolvedIdentity)
}

func TestRegistry_RejectsBadDirectory(t *testing.T) {
	_, err := NewIdentityRegistry(Directory{Employees: []domain.Entity{{ID: "a"}, {ID: "A"}}}, nil)
	assert.Error(t, err)

	_, err = NewIdentityRegistry(Directory{Employees: []domain.Entity{{ID: " "}}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)

	_, err = NewIdentityRegistry(Directory{Machines: []domain.Entity{
		{ID: "m1", MachineID: "1"}, {ID: "m2", MachineID: "1"},
	}}, nil)
	assert.Error(t, err)
}

func TestRegistry_AuthorizationOnlyIfListed(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, domain.AuthPermanent, reg.AuthorizationStatus("AA:BB"))
	assert.Equal(t, domain.AuthUnauthorized, reg.AuthorizationStatus("dd:ee"), "known employee without a grant")
	assert.Equal(t, domain.AuthUnauthorized, reg.AuthorizationStatus("cc:cc"))

	reg.AddTemporary("CC:CC")
	assert.Equal(t, domain.AuthTemporary, reg.AuthorizationStatus("cc:cc"))

	reg.AddTemporary("aa:bb")
	assert.Equal(t, domain.AuthPermanent, reg.AuthorizationStatus("aa:bb"), "permanent wins")
}

func TestRegistry_TemporaryRoundTrip(t *testing.T) {
	m := NewMetrics(nil)
	reg, err := NewIdentityRegistry(Directory{Temporary: []string{"11:11"}}, m)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TemporaryAuthorized))

	assert.True(t, reg.AddTemporary(" CC:CC:CC:CC:CC:CC "))
	assert.False(t, reg.AddTemporary("cc:cc:cc:cc:cc:cc"), "add is idempotent")
	assert.False(t, reg.AddTemporary(""))
	assert.Equal(t, []string{"11:11", "cc:cc:cc:cc:cc:cc"}, reg.ListTemporary())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TemporaryAuthorized))

	assert.True(t, reg.RemoveTemporary("CC:CC:CC:CC:CC:CC"))
	assert.False(t, reg.RemoveTemporary("cc:cc:cc:cc:cc:cc"), "second remove reports absence")
	assert.Equal(t, domain.AuthUnauthorized, reg.AuthorizationStatus("cc:cc:cc:cc:cc:cc"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TemporaryAuthorized))

	reg.ReplaceTemporary([]string{"B", "a", ""})
	assert.Equal(t, []string{"a", "b"}, reg.ListTemporary())
}

func TestRegistry_ListNeverNil(t *testing.T) {
	reg, err := NewIdentityRegistry(Directory{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, reg.ListTemporary())
	assert.NotNil(t, reg.Employees())
	assert.NotNil(t, reg.Machines())
}

func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	reg := newTestRegistry(t)
	emps := reg.Employees()
	emps[0].Name = "Mallory"

	e, err := reg.Resolve("aa:bb")
	require.NoError(t, err)
	assert.Equal(t, "Alice", e.Name)
	assert.Equal(t, "Alice", reg.Employees()[0].Name)
	assert.Len(t, reg.Machines(), 1)
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := newTestRegistry(t)

	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("%02x:%02x", w, i%50)
				reg.AddTemporary(id)
				_ = reg.AuthorizationStatus(id)
				_ = reg.ListTemporary()
				if i%2 == 0 {
					reg.RemoveTemporary(id)
				}
			}
		}(w)
	}
	wg.Wait()

	for _, id := range reg.ListTemporary() {
		assert.Equal(t, domain.AuthTemporary, reg.AuthorizationStatus(id))
	}
}

func TestRegistry_ConcurrentGaugeMatchesSet(t *testing.T) {
	m := NewMetrics(nil)
	reg, err := NewIdentityRegistry(testDirectory(), m)
	require.NoError(t, err)

	const workers = 16
	const perWorker = 300

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("%02x:%02x", w, i%7)
				switch i % 3 {
				case 0:
					reg.AddTemporary(id)
				case 1:
					reg.RemoveTemporary(id)
				default:
					if i%30 == 2 {
						reg.ReplaceTemporary([]string{id, "ff:ff"})
					} else {
						reg.AddTemporary(id)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, float64(len(reg.ListTemporary())), testutil.ToFloat64(m.TemporaryAuthorized),
		"gauge reflects the last write to the set")
}
