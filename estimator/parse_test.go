package estimator

import (
	"testing"

	"github.com/rushteam/homeprice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawListing() map[string]any {
	return map[string]any{
		"state":      "CA",
		"zipcode":    "90210",
		"homeType":   "SINGLE_FAMILY",
		"livingArea": "2000",
		"bedrooms":   3,
		"bathrooms":  2.0,
		"lotArea":    5000,
	}
}

func TestParseListing(t *testing.T) {
	l, err := ParseListing(rawListing())
	require.NoError(t, err)
	assert.Equal(t, &core.Listing{
		Region:     "CA",
		PostalCode: 90210,
		HomeType:   core.HomeTypeSingleFamily,
		LivingArea: 2000,
		Bedrooms:   3,
		Bathrooms:  2,
		LotArea:    5000,
	}, l)
}

func TestParseListing_DigitSeparators(t *testing.T) {
	raw := rawListing()
	raw["livingArea"] = "2_000.5"
	raw["lotArea"] = "43_560"
	raw["zipcode"] = "90_210"

	l, err := ParseListing(raw)
	require.NoError(t, err)
	assert.Equal(t, 2000.5, l.LivingArea)
	assert.Equal(t, 43560.0, l.LotArea)
	assert.Equal(t, int64(90210), l.PostalCode)
}

func TestParseListing_NonStringCategories(t *testing.T) {
	raw := rawListing()
	raw["state"] = 6
	raw["homeType"] = nil

	l, err := ParseListing(raw)
	require.NoError(t, err)
	assert.Equal(t, core.RegionCode(""), l.Region)
	assert.Equal(t, core.HomeType(""), l.HomeType)
}

func TestParseListing_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
		drop  bool
	}{
		{name: "missing state", field: "state", drop: true},
		{name: "missing zipcode", field: "zipcode", drop: true},
		{name: "missing homeType", field: "homeType", drop: true},
		{name: "decimal zipcode string", field: "zipcode", value: "902.10"},
		{name: "living area text", field: "livingArea", value: "big"},
		{name: "bedrooms text", field: "bedrooms", value: "three"},
		{name: "bathrooms nil", field: "bathrooms", value: nil},
		{name: "lot area list", field: "lotArea", value: []any{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawListing()
			if tt.drop {
				delete(raw, tt.field)
			} else {
				raw[tt.field] = tt.value
			}
			_, err := ParseListing(raw)
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
			assert.Equal(t, tt.field, core.GetDomainError(err).Field)
		})
	}
}

func TestParseListing_FirstFailingFieldWins(t *testing.T) {
	raw := rawListing()
	raw["bedrooms"] = "x"
	raw["zipcode"] = "y"

	_, err := ParseListing(raw)
	require.Error(t, err)
	assert.Equal(t, "zipcode", core.GetDomainError(err).Field)
}
