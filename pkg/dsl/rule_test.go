package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileRules(t *testing.T) {
	rules, err := CompileRules([]Rule{
		{Name: "large_lot", When: `listing.lot_area > 43560.0`, Label: "acreage"},
		{Name: "luxury", When: `price > 1000000.0`},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "luxury", rules[1].Label, "label defaults to name")

	in := sampleInput()
	ok, err := rules[0].Match(in)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rules[1].Match(in)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileRules_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"missing name", []Rule{{When: `price > 0.0`}}},
		{"missing when", []Rule{{Name: "x"}}},
		{"bad expression", []Rule{{Name: "x", When: `price >`}}},
		{"non bool", []Rule{{Name: "x", When: `price * 2.0`}}},
		{"duplicate", []Rule{{Name: "x", When: `true`}, {Name: "x", When: `false`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRules(tt.rules)
			assert.Error(t, err)
		})
	}
}
