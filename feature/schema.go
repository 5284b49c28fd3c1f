package feature

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rushteam/homeprice/core"
)

// 特征列名
const (
	ColumnBathrooms    = "bathrooms"
	ColumnBedrooms     = "bedrooms"
	ColumnLivingArea   = "livingArea"
	ColumnLotArea      = "lotArea"
	ColumnMedianIncome = "median_income"

	// 指示列的 key，列名为 "{key}_{category}"
	KeyHomeType = "homeType"
	KeyRegion   = "state"
)

// Schema 特征列 schema，对应 feature_meta.json
type Schema struct {
	// FeatureColumns 特征列名列表（按顺序）
	FeatureColumns []string `json:"feature_columns"`
	// FeatureCount 特征数量（可选，非 0 时必须等于列数）
	FeatureCount int `json:"feature_count,omitempty"`
	// ModelVersion 模型版本
	ModelVersion string `json:"model_version,omitempty"`
	// CreatedAt 创建时间
	CreatedAt string `json:"created_at,omitempty"`
}

// DefaultColumns 训练时的列顺序：
// 四个数值列、按字母序的 homeType 指示列、median_income、按字母序的 state 指示列。
func DefaultColumns(regions *RegionSet) []string {
	onehot := newListingOneHot(regions)
	cols := []string{ColumnBathrooms, ColumnBedrooms, ColumnLivingArea, ColumnLotArea}
	cols = append(cols, onehot.Columns(KeyHomeType)...)
	cols = append(cols, ColumnMedianIncome)
	return append(cols, onehot.Columns(KeyRegion)...)
}

// DefaultSchema 由地区集合生成默认 schema
func DefaultSchema(regions *RegionSet) *Schema {
	cols := DefaultColumns(regions)
	return &Schema{FeatureColumns: cols, FeatureCount: len(cols)}
}

// LoadSchema 从 JSON 解析 schema
func LoadSchema(r io.Reader) (*Schema, error) {
	var s Schema
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeInvalidInput,
			Message: "feature: parse schema",
			Err:     err,
		}
	}
	return &s, nil
}

// Len 列数
func (s *Schema) Len() int { return len(s.FeatureColumns) }

// Validate 检查 schema 能否由编码器完整产出：
// 列名不重复、feature_count 一致、每一列都是已知数值列、封闭集合内的 homeType 指示列、
// median_income 或地区集合内的 state 指示列。
func (s *Schema) Validate(regions *RegionSet) error {
	if len(s.FeatureColumns) == 0 {
		return schemaError("feature_columns is empty")
	}
	if s.FeatureCount != 0 && s.FeatureCount != len(s.FeatureColumns) {
		return schemaError(fmt.Sprintf("feature_count %d != %d columns", s.FeatureCount, len(s.FeatureColumns)))
	}
	seen := make(map[string]struct{}, len(s.FeatureColumns))
	for _, col := range s.FeatureColumns {
		if _, dup := seen[col]; dup {
			return schemaError(fmt.Sprintf("duplicate column %q", col))
		}
		seen[col] = struct{}{}
		if !producible(col, regions) {
			return schemaError(fmt.Sprintf("column %q cannot be produced from a listing", col))
		}
	}
	return nil
}

func producible(col string, regions *RegionSet) bool {
	switch col {
	case ColumnBathrooms, ColumnBedrooms, ColumnLivingArea, ColumnLotArea, ColumnMedianIncome:
		return true
	}
	if h, ok := strings.CutPrefix(col, KeyHomeType+"_"); ok {
		return core.HomeType(h).Known()
	}
	if code, ok := strings.CutPrefix(col, KeyRegion+"_"); ok {
		return regions.Contains(code)
	}
	return false
}

func schemaError(msg string) error {
	return core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: schema: "+msg)
}

// GetMissingFeatures 返回 features 中缺失的特征列
func (s *Schema) GetMissingFeatures(features map[string]float64) []string {
	var missing []string
	for _, col := range s.FeatureColumns {
		if _, ok := features[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// BuildFeatureVector 按 feature_columns 顺序构建特征向量。
// 不在 schema 中的特征被丢弃；缺列说明编码器与 schema 不一致，返回 INTERNAL_ERROR 而不是补 0。
func (s *Schema) BuildFeatureVector(features map[string]float64) (*core.FeatureVector, error) {
	if missing := s.GetMissingFeatures(features); len(missing) > 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInternalError,
			fmt.Sprintf("feature: columns %v missing from encoded listing", missing))
	}
	values := make([]float64, len(s.FeatureColumns))
	for i, col := range s.FeatureColumns {
		values[i] = features[col]
	}
	cols := make([]string, len(s.FeatureColumns))
	copy(cols, s.FeatureColumns)
	return &core.FeatureVector{Columns: cols, Values: values}, nil
}
