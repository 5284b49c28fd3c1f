package feature

import (
	"strings"
	"testing"

	"github.com/rushteam/homeprice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncoder(t *testing.T) *ListingEncoder {
	t.Helper()
	enc, err := NewListingEncoder(usRegions(), sampleIncome(), nil)
	require.NoError(t, err)
	return enc
}

func caListing() *core.Listing {
	return &core.Listing{
		Region:     "CA",
		PostalCode: 90210,
		HomeType:   core.HomeTypeSingleFamily,
		LivingArea: 2000,
		Bedrooms:   3,
		Bathrooms:  2,
		LotArea:    5000,
	}
}

func TestListingEncoder_WorkedExample(t *testing.T) {
	enc := newTestEncoder(t)
	vec, info, err := enc.Encode(caListing())
	require.NoError(t, err)
	require.Equal(t, 60, vec.Len())

	want := map[string]float64{
		"bathrooms": 2, "bedrooms": 3, "livingArea": 2000, "lotArea": 5000,
		"homeType_SINGLE_FAMILY": 1, "median_income": 120000, "state_CA": 1,
	}
	for i, col := range vec.Columns {
		assert.Equal(t, want[col], vec.Values[i], col)
	}
	assert.Equal(t, DefaultColumns(usRegions()), vec.Columns)
	assert.False(t, info.IncomeFallback)
	assert.False(t, info.UnknownRegion)
	assert.False(t, info.UnknownHomeType)
}

func TestListingEncoder_FixedShape(t *testing.T) {
	enc := newTestEncoder(t)
	listings := []*core.Listing{
		caListing(),
		{Region: "NY", PostalCode: 10001, HomeType: core.HomeTypeCondo},
		{Region: "ZZ", PostalCode: 1, HomeType: "CASTLE"},
		{},
	}
	for _, l := range listings {
		vec, _, err := enc.Encode(l)
		require.NoError(t, err)
		assert.Equal(t, enc.Schema().FeatureColumns, vec.Columns)
	}
}

func TestListingEncoder_IncomeFallback(t *testing.T) {
	enc := newTestEncoder(t)
	l := caListing()
	l.PostalCode = 99999

	vec, info, err := enc.Encode(l)
	require.NoError(t, err)
	income, _ := vec.Get("median_income")
	assert.Equal(t, 100000.0, income)
	assert.True(t, info.IncomeFallback)
	assert.Equal(t, 100000.0, info.MedianIncome)
}

func TestListingEncoder_UnknownCategories(t *testing.T) {
	enc := newTestEncoder(t)
	l := caListing()
	l.HomeType = "CASTLE"
	l.Region = "ca"

	vec, info, err := enc.Encode(l)
	require.NoError(t, err)
	assert.True(t, info.UnknownHomeType)
	assert.True(t, info.UnknownRegion)
	for i, col := range vec.Columns {
		if strings.HasPrefix(col, "state_") || strings.HasPrefix(col, "homeType_") {
			assert.Zero(t, vec.Values[i], col)
		}
	}
}

func TestListingEncoder_CustomSchemaDropsExtraRegions(t *testing.T) {
	schema := &Schema{FeatureColumns: []string{"median_income", "state_CA", "livingArea"}}
	enc, err := NewListingEncoder(usRegions(), sampleIncome(), schema)
	require.NoError(t, err)

	vec, _, err := enc.Encode(caListing())
	require.NoError(t, err)
	assert.Equal(t, []float64{120000, 1, 2000}, vec.Values)
}

func TestNewListingEncoder_Errors(t *testing.T) {
	_, err := NewListingEncoder(nil, sampleIncome(), nil)
	assert.Error(t, err)
	_, err = NewListingEncoder(usRegions(), nil, nil)
	assert.Error(t, err)
	_, err = NewListingEncoder(usRegions(), sampleIncome(), &Schema{FeatureColumns: []string{"zipcode"}})
	assert.True(t, core.IsInvalidInput(err))
}
