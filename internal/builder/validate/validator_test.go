package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHardMinimums(t *testing.T) {
	rules := Rules{
		HardMinimums: map[string]int{
			"walls":  4,
			"roof":   1,
			"drains": 4,
			"doors":  1,
		},
	}
	inventory := map[string]int{
		"walls":  3,
		"roof":   0,
		"drains": 2,
		"doors":  5,
	}

	result := Check(inventory, rules)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 3)

	joined := ""
	for _, e := range result.Errors {
		joined += e + ";"
	}
	assert.Contains(t, joined, "walls")
	assert.Contains(t, joined, "roof")
	assert.Contains(t, joined, "drains")
	assert.NotContains(t, joined, "doors")
}

func TestCheckWarningsNonBlocking(t *testing.T) {
	rules := Rules{
		HardMinimums: map[string]int{"walls": 1},
		Expected:     map[string]Range{"walls": {Min: 4, Max: 10}},
	}

	result := Check(map[string]int{"walls": 2}, rules)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 1)
}

func TestCheckMissingCategoryCountsAsZero(t *testing.T) {
	rules := Rules{HardMinimums: map[string]int{"roof": 1}}

	result := Check(map[string]int{}, rules)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "roof")
}
