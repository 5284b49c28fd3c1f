package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{"empty existing", Label{}, Label{Value: "a", Source: "rule"}, Label{Value: "a", Source: "rule"}},
		{"empty incoming", Label{Value: "a", Source: "rule"}, Label{}, Label{Value: "a", Source: "rule"}},
		{"both", Label{Value: "a", Source: "rule"}, Label{Value: "b", Source: "baseline"}, Label{Value: "a|b", Source: "rule,baseline"}},
		{"missing source", Label{Value: "a"}, Label{Value: "b", Source: "rule"}, Label{Value: "a|b", Source: "rule"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeLabel(tt.existing, tt.incoming))
		})
	}
}

func TestPutLabel(t *testing.T) {
	labels := PutLabel(nil, "large_lot", Label{Value: "true", Source: "rule"})
	labels = PutLabel(labels, "large_lot", Label{Value: "acre+", Source: "rule"})
	assert.Equal(t, Label{Value: "true|acre+", Source: "rule,rule"}, labels["large_lot"])
}
