package homeprice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/homeprice"
	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/model"
)

func TestFacade_Predict(t *testing.T) {
	regions := feature.NewRegionSet("CA", "NY")
	income, err := feature.NewIncomeTable([]feature.IncomeRecord{{PostalCode: 90210, MedianIncome: 150000}})
	require.NoError(t, err)

	weights := make(map[string]float64)
	for _, col := range feature.DefaultColumns(regions) {
		weights[col] = 0
	}
	weights[feature.ColumnLivingArea] = 100
	p, err := homeprice.New(homeprice.Resources{
		Model:   &model.LinearModel{Bias: 1000, Weights: weights},
		Regions: regions,
		Income:  income,
	})
	require.NoError(t, err)

	l, err := homeprice.ParseListing(map[string]any{
		"state": "CA", "zipcode": 90210, "homeType": "CONDO",
		"livingArea": 1500.5, "bedrooms": 3, "bathrooms": 2, "lotArea": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, homeprice.HomeTypeCondo, l.HomeType)

	price, err := p.Predict(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, int64(151050), price)
}
