package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xela07ax/floorwatch/internal/domain"
)

func TestThresholdClassifier_Classify(t *testing.T) {
	c := NewThresholdClassifier(DefaultThresholds())

	tests := []struct {
		name string
		lat  float64
		lng  float64
		want string
	}{
		{"west wins over north", 51.4606, -0.9330, "Nvidia"},
		{"west south", 51.4603, -0.9330, "Nvidia"},
		{"north east", 51.4606, -0.9325, "Apple"},
		{"south east", 51.4603, -0.9325, "Samsung"},
		{"lng on threshold is not west", 51.4603, DefaultLngThreshold, "Samsung"},
		{"lat on threshold is not north", DefaultLatThreshold, -0.9325, "Samsung"},
		{"far away still classified", 0, 0, "Samsung"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := domain.NewLocation(tt.lat, tt.lng)
			assert.Equal(t, tt.want, c.Classify(loc))
			// детерминированность
			assert.Equal(t, c.Classify(loc), c.Classify(loc))
		})
	}
}

func TestThresholdClassifier_Custom(t *testing.T) {
	c := NewThresholdClassifier(Thresholds{
		LngThreshold:  10,
		LatThreshold:  20,
		WestOwner:     "A",
		NorthOwner:    "B",
		FallbackOwner: "C",
	})
	assert.Equal(t, "A", c.Classify(domain.NewLocation(30, 5)))
	assert.Equal(t, "B", c.Classify(domain.NewLocation(30, 15)))
	assert.Equal(t, "C", c.Classify(domain.NewLocation(10, 15)))
}

func TestCheck(t *testing.T) {
	c := NewThresholdClassifier(DefaultThresholds())
	alice := domain.Entity{ID: "aa:bb", Kind: domain.KindEmployee, Name: "Alice", Zone: "apple", Role: "Engineer"}

	actual, violation := Check(c, alice, domain.NewLocation(51.4606, -0.9325))
	assert.Equal(t, "Apple", actual)
	assert.False(t, violation, "owner comparison ignores case")

	actual, violation = Check(c, alice, domain.NewLocation(51.4603, -0.9325))
	assert.Equal(t, "Samsung", actual)
	assert.True(t, violation)
	assert.True(t, IsViolation(c, alice, domain.NewLocation(51.4606, -0.9330)))
}

func TestPolygonClassifier(t *testing.T) {
	c := NewPolygonClassifier(BuildingBoundary, "Outside", NewThresholdClassifier(DefaultThresholds()))

	assert.Equal(t, "Apple", c.Classify(domain.NewLocation(51.4606, -0.9325)))
	assert.Equal(t, "Samsung", c.Classify(domain.NewLocation(51.4603, -0.9325)))
	assert.Equal(t, "Nvidia", c.Classify(domain.NewLocation(51.4604, -0.9330)))
	assert.Equal(t, "Outside", c.Classify(domain.NewLocation(51.4608, -0.9330)))
	assert.Equal(t, "Outside", c.Classify(domain.NewLocation(0, 0)))
}

func TestPolygonClassifier_DegenerateBoundary(t *testing.T) {
	c := NewPolygonClassifier([]Point{{0, 0}, {1, 1}}, "Outside", NewThresholdClassifier(DefaultThresholds()))
	assert.Equal(t, "Outside", c.Classify(domain.NewLocation(0.5, 0.5)))
}

func TestContains_Square(t *testing.T) {
	square := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	assert.True(t, Contains(square, 1, 1))
	assert.False(t, Contains(square, 3, 1))
	assert.False(t, Contains(square, 1, -1))
}
