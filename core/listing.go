package core

// HomeType 是房屋类型，取值为封闭集合。
// 集合之外的值在编码时得到全零指示列，而不是错误。
type HomeType string

const (
	HomeTypeSingleFamily HomeType = "SINGLE_FAMILY"
	HomeTypeCondo        HomeType = "CONDO"
	HomeTypeTownhouse    HomeType = "TOWNHOUSE"
	HomeTypeMultiFamily  HomeType = "MULTI_FAMILY"
)

// HomeTypes 返回训练时声明的房屋类型集合（声明顺序）。
func HomeTypes() []HomeType {
	return []HomeType{
		HomeTypeSingleFamily,
		HomeTypeCondo,
		HomeTypeTownhouse,
		HomeTypeMultiFamily,
	}
}

// Known 判断是否属于封闭集合。
func (h HomeType) Known() bool {
	for _, t := range HomeTypes() {
		if h == t {
			return true
		}
	}
	return false
}

// RegionCode 是地区代码（如州缩写 "CA"），合法取值由启动时加载的 RegionSet 决定。
type RegionCode string

// Listing 是一次预测请求中的房源输入，请求结束即丢弃。
type Listing struct {
	Region     RegionCode `json:"state"`
	PostalCode int64      `json:"zipcode"`
	HomeType   HomeType   `json:"homeType"`
	LivingArea float64    `json:"livingArea"`
	Bedrooms   int64      `json:"bedrooms"`
	Bathrooms  int64      `json:"bathrooms"`
	LotArea    float64    `json:"lotArea"`
}

// 原始输入中的键名
const (
	FieldRegion     = "state"
	FieldPostalCode = "zipcode"
	FieldHomeType   = "homeType"
	FieldLivingArea = "livingArea"
	FieldBedrooms   = "bedrooms"
	FieldBathrooms  = "bathrooms"
	FieldLotArea    = "lotArea"
)
