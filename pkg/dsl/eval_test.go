package dsl

import (
	"testing"

	"github.com/rushteam/homeprice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() Input {
	return Input{
		Listing: &core.Listing{
			Region:     "CA",
			PostalCode: 90210,
			HomeType:   core.HomeTypeSingleFamily,
			LivingArea: 2000,
			Bedrooms:   3,
			Bathrooms:  2,
			LotArea:    50000,
		},
		Features: &core.FeatureVector{
			Columns: []string{"median_income", "state_CA"},
			Values:  []float64{120000, 1},
		},
		Price: 412345,
	}
}

func TestProgram_Run(t *testing.T) {
	tests := []struct {
		expr    string
		want    bool
		wantErr bool
	}{
		{`listing.state == "CA"`, true, false},
		{`listing.home_type == "CONDO"`, false, false},
		{`listing.zipcode == 90210`, true, false},
		{`listing.lot_area > 43560.0`, true, false},
		{`listing.bedrooms >= 3 && listing.bathrooms >= 2`, true, false},
		{`features.median_income > 100000.0`, true, false},
		{`price < 500000.0 && "state_CA" in features`, true, false},
		{`listing.pool == true`, false, true},
		{`listing.state ==`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := compileAndRun(tt.expr, sampleInput())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func compileAndRun(expr string, in Input) (bool, error) {
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Run(in)
}

func TestCompile(t *testing.T) {
	p, err := Compile(`price > 400000.0`)
	require.NoError(t, err)
	ok, err := p.Run(sampleInput())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Run(Input{})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Compile(`price + 1.0`)
	assert.Error(t, err, "non-bool expressions are rejected")
}
