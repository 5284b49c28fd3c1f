package feature

import (
	"github.com/rushteam/homeprice/core"
)

// EncodeInfo 记录一次编码中发生的回退，用于监控与日志，不影响结果
type EncodeInfo struct {
	MedianIncome    float64 `json:"median_income"`
	IncomeFallback  bool    `json:"income_fallback"`
	UnknownRegion   bool    `json:"unknown_region"`
	UnknownHomeType bool    `json:"unknown_home_type"`
}

// ListingEncoder 把房源输入编码成模型需要的定长、定序特征向量。
//
// 地区集合、收入表与 schema 在构造后只读，Encode 可以并发调用。
type ListingEncoder struct {
	regions *RegionSet
	income  *IncomeTable
	schema  *Schema
	onehot  *OneHotEncoder
}

// NewListingEncoder 创建编码器；schema 为 nil 时使用 DefaultSchema(regions)。
func NewListingEncoder(regions *RegionSet, income *IncomeTable, schema *Schema) (*ListingEncoder, error) {
	if regions == nil || regions.Len() == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: region set is required")
	}
	if income == nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: income table is required")
	}
	if schema == nil {
		schema = DefaultSchema(regions)
	}
	if err := schema.Validate(regions); err != nil {
		return nil, err
	}
	return &ListingEncoder{
		regions: regions,
		income:  income,
		schema:  schema,
		onehot:  newListingOneHot(regions),
	}, nil
}

// Schema 返回编码器使用的 schema
func (e *ListingEncoder) Schema() *Schema { return e.schema }

// Regions 返回地区集合
func (e *ListingEncoder) Regions() *RegionSet { return e.regions }

// Income 返回收入表
func (e *ListingEncoder) Income() *IncomeTable { return e.income }

// Encode 编码一条房源：
//  1. 数值列原样写入
//  2. homeType / state 按声明的类别域做 one-hot，未知值得到全 0
//  3. 按邮编查收入中位数，查不到时用全表均值
//  4. 邮编只用于查表，不进入特征
//  5. 按 schema 顺序输出
func (e *ListingEncoder) Encode(l *core.Listing) (*core.FeatureVector, *EncodeInfo, error) {
	features := make(map[string]float64, e.schema.Len()+e.regions.Len())
	features[ColumnBathrooms] = float64(l.Bathrooms)
	features[ColumnBedrooms] = float64(l.Bedrooms)
	features[ColumnLivingArea] = l.LivingArea
	features[ColumnLotArea] = l.LotArea

	categories := map[string]interface{}{
		KeyHomeType: string(l.HomeType),
		KeyRegion:   string(l.Region),
	}
	e.onehot.EncodeFeatures(features, categories)

	income, fallback := e.income.Resolve(l.PostalCode)
	features[ColumnMedianIncome] = income

	vec, err := e.schema.BuildFeatureVector(features)
	if err != nil {
		return nil, nil, err
	}
	info := &EncodeInfo{
		MedianIncome:    income,
		IncomeFallback:  fallback,
		UnknownRegion:   !e.onehot.Known(KeyRegion, categories[KeyRegion]),
		UnknownHomeType: !e.onehot.Known(KeyHomeType, categories[KeyHomeType]),
	}
	return vec, info, nil
}
