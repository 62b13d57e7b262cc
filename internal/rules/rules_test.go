package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirst_OrderIsPriority(t *testing.T) {
	list := []Rule[int, string]{
		{Name: "gt10", When: func(n int) bool { return n > 10 }, Then: Const[int]("big")},
		{Name: "gt0", When: func(n int) bool { return n > 0 }, Then: Const[int]("positive")},
	}

	m := First(list, 42, "other")
	assert.Equal(t, "big", m.Value)
	assert.Equal(t, "gt10", m.Rule)

	m = First(list, 3, "other")
	assert.Equal(t, "positive", m.Value)
	assert.Equal(t, "gt0", m.Rule)
}

func TestFirst_Fallback(t *testing.T) {
	list := []Rule[int, string]{
		{Name: "neg", When: func(n int) bool { return n < 0 }, Then: Const[int]("neg")},
	}

	m := First(list, 5, "fallback")
	assert.Equal(t, "fallback", m.Value)
	assert.Empty(t, m.Rule)

	assert.Equal(t, "empty", First[int, string](nil, 1, "empty").Value)
}

func TestFirst_NilConditionIsSkipped(t *testing.T) {
	list := []Rule[int, int]{
		{Name: "broken"},
		{Name: "double", When: func(int) bool { return true }, Then: func(n int) int { return n * 2 }},
	}
	assert.Equal(t, 8, First(list, 4, 0).Value)
}

