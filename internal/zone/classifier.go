// Package zone определяет, на чьей территории площадки находится точка.
package zone

import (
	"strings"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/rules"
)

// Значения по умолчанию сняты с плана третьего этажа.
const (
	DefaultLngThreshold = -0.9328
	DefaultLatThreshold = 51.46051109286201

	DefaultWestOwner     = "Nvidia"
	DefaultNorthOwner    = "Apple"
	DefaultFallbackOwner = "Samsung"
)

type Classifier interface {
	// Classify всегда возвращает владельца зоны: функция тотальная.
	Classify(loc domain.Location) string
}

// Thresholds задаёт границы зон на долготе и широте.
type Thresholds struct {
	LngThreshold  float64 `mapstructure:"lng_threshold"`
	LatThreshold  float64 `mapstructure:"lat_threshold"`
	WestOwner     string  `mapstructure:"west_owner"`
	NorthOwner    string  `mapstructure:"north_owner"`
	FallbackOwner string  `mapstructure:"fallback_owner"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LngThreshold:  DefaultLngThreshold,
		LatThreshold:  DefaultLatThreshold,
		WestOwner:     DefaultWestOwner,
		NorthOwner:    DefaultNorthOwner,
		FallbackOwner: DefaultFallbackOwner,
	}
}

// ThresholdClassifier - упорядоченный список правил: сначала долгота, потом широта.
// Точка западнее границы относится к западному владельцу, даже если она и севернее.
type ThresholdClassifier struct {
	rules    []rules.Rule[domain.Location, string]
	fallback string
}

func NewThresholdClassifier(t Thresholds) *ThresholdClassifier {
	return &ThresholdClassifier{
		rules: []rules.Rule[domain.Location, string]{
			{
				Name: "west_of_lng",
				When: func(l domain.Location) bool { return l.Lng() < t.LngThreshold },
				Then: rules.Const[domain.Location](t.WestOwner),
			},
			{
				Name: "north_of_lat",
				When: func(l domain.Location) bool { return l.Lat() > t.LatThreshold },
				Then: rules.Const[domain.Location](t.NorthOwner),
			},
		},
		fallback: t.FallbackOwner,
	}
}

func (c *ThresholdClassifier) Classify(loc domain.Location) string {
	return rules.First(c.rules, loc, c.fallback).Value
}

// Check сверяет фактическую зону с назначенной. Сравнение владельцев регистронезависимое.
func Check(c Classifier, entity domain.Entity, loc domain.Location) (actual string, violation bool) {
	actual = c.Classify(loc)
	return actual, !strings.EqualFold(actual, entity.Zone)
}

// IsViolation - короткая форма Check для мест, где фактическая зона не нужна.
func IsViolation(c Classifier, entity domain.Entity, loc domain.Location) bool {
	_, v := Check(c, entity, loc)
	return v
}
