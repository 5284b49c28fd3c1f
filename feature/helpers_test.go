package feature

import "strings"

// 51 个州级代码（含 DC）
var usRegionCodes = strings.Fields(`AK AL AR AZ CA CO CT DC DE FL GA HI IA ID IL IN KS KY LA MA MD ME MI MN MO MS MT NC ND NE NH NJ NM NV NY OH OK OR PA RI SC SD TN TX UT VA VT WA WI WV WY`)

func usRegions() *RegionSet {
	return NewRegionSet(usRegionCodes...)
}

func sampleIncome() *IncomeTable {
	t, err := NewIncomeTable([]IncomeRecord{
		{PostalCode: 90210, MedianIncome: 120000},
		{PostalCode: 10001, MedianIncome: 80000},
		{PostalCode: 60601, MedianIncome: 100000},
	})
	if err != nil {
		panic(err)
	}
	return t
}
