package feature

import (
	"fmt"
	"sort"

	"github.com/rushteam/homeprice/core"
)

// OneHotEncoder One-Hot 编码（独热编码）
//
// 类别域在构造时声明，每个类别对应一个维度，列名为 "{key}_{category}"。
// 与训练侧 pd.get_dummies 不同，输出列不依赖输入中出现了哪些类别：
// 同一个 key 永远产出相同的列集合；未知类别产出全 0，不报错。
type OneHotEncoder struct {
	Categories map[string][]string // 每个特征名对应的类别列表（声明顺序）
}

// NewOneHotEncoder 创建 One-Hot 编码器
func NewOneHotEncoder(categories map[string][]string) *OneHotEncoder {
	return &OneHotEncoder{Categories: categories}
}

// newListingOneHot homeType 与 state 两个类别域，均按字母序声明
func newListingOneHot(regions *RegionSet) *OneHotEncoder {
	homeTypes := make([]string, 0, len(core.HomeTypes()))
	for _, h := range core.HomeTypes() {
		homeTypes = append(homeTypes, string(h))
	}
	sort.Strings(homeTypes)
	return NewOneHotEncoder(map[string][]string{
		KeyHomeType: homeTypes,
		KeyRegion:   regions.Codes(),
	})
}

// ColumnName 返回 key 下某个类别对应的列名
func (e *OneHotEncoder) ColumnName(key, category string) string {
	return key + "_" + category
}

// Columns 返回 key 下全部指示列（声明顺序）；key 未声明时返回 nil
func (e *OneHotEncoder) Columns(key string) []string {
	categories, ok := e.Categories[key]
	if !ok {
		return nil
	}
	cols := make([]string, len(categories))
	for i, cat := range categories {
		cols[i] = e.ColumnName(key, cat)
	}
	return cols
}

// Known 判断 value 是否落在 key 的类别域内。
// 只接受 string，大小写敏感。
func (e *OneHotEncoder) Known(key string, value interface{}) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, cat := range e.Categories[key] {
		if cat == s {
			return true
		}
	}
	return false
}

// EncodeWithKey 编码单个值（指定特征名）
//
// 非 string 的值一律视为未知类别。
func (e *OneHotEncoder) EncodeWithKey(key string, value interface{}) map[string]float64 {
	categories, ok := e.Categories[key]
	if !ok {
		return map[string]float64{}
	}
	encoded := make(map[string]float64, len(categories))
	valStr, isStr := value.(string)
	for _, cat := range categories {
		if isStr && cat == valStr {
			encoded[e.ColumnName(key, cat)] = 1.0
		} else {
			encoded[e.ColumnName(key, cat)] = 0.0
		}
	}
	return encoded
}

// EncodeFeatures 编码特征字典，结果写入 dst（dst 为 nil 时新建）
func (e *OneHotEncoder) EncodeFeatures(dst map[string]float64, features map[string]interface{}) map[string]float64 {
	if dst == nil {
		dst = make(map[string]float64)
	}
	for k, v := range features {
		for ek, ev := range e.EncodeWithKey(k, v) {
			dst[ek] = ev
		}
	}
	return dst
}

// String 便于日志输出
func (e *OneHotEncoder) String() string {
	return fmt.Sprintf("OneHotEncoder(keys=%d)", len(e.Categories))
}
