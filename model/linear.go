package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/rushteam/homeprice/core"
)

// LinearModel 线性回归模型：y = Bias + sum(Weight_i * Feature_i)。
//
// 导出格式（两种均可）：
//
//	{"bias": 12000.0, "weights": {"livingArea": 180.5, "bedrooms": -3200.0, ...}}
//	{"intercept": 12000.0, "feature_columns": ["bathrooms", ...], "coefficients": [9500.0, ...]}
type LinearModel struct {
	Bias    float64            // 偏置项 (Bias / Intercept)
	Weights map[string]float64 // 特征权重 (Weights / Coefficients)
}

type linearJSON struct {
	Bias           *float64           `json:"bias"`
	Weights        map[string]float64 `json:"weights"`
	Intercept      *float64           `json:"intercept"`
	FeatureColumns []string           `json:"feature_columns"`
	Coefficients   []float64          `json:"coefficients"`
}

// LoadLinearModel 从 JSON 读取线性模型
func LoadLinearModel(r io.Reader) (*LinearModel, error) {
	var raw linearJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, modelError(core.ErrorCodeInvalidInput, "parse linear model", err)
	}

	m := &LinearModel{}
	switch {
	case raw.Bias != nil:
		m.Bias = *raw.Bias
	case raw.Intercept != nil:
		m.Bias = *raw.Intercept
	}

	switch {
	case len(raw.Weights) > 0:
		m.Weights = raw.Weights
	case len(raw.Coefficients) > 0:
		if len(raw.Coefficients) != len(raw.FeatureColumns) {
			return nil, invalidModel("%d coefficients for %d feature_columns", len(raw.Coefficients), len(raw.FeatureColumns))
		}
		m.Weights = make(map[string]float64, len(raw.Coefficients))
		for i, col := range raw.FeatureColumns {
			if _, dup := m.Weights[col]; dup {
				return nil, invalidModel("duplicate feature column %q", col)
			}
			m.Weights[col] = raw.Coefficients[i]
		}
	default:
		return nil, invalidModel("linear model has no weights")
	}

	if err := checkFinite("bias", m.Bias); err != nil {
		return nil, err
	}
	for k, w := range m.Weights {
		if err := checkFinite("weight "+k, w); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *LinearModel) Name() string { return "linear" }

// ValidateColumns 要求每一列都有权重，且没有多余的权重
func (m *LinearModel) ValidateColumns(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	var missing []string
	for _, c := range columns {
		seen[c] = struct{}{}
		if _, ok := m.Weights[c]; !ok {
			missing = append(missing, c)
		}
	}
	var extra []string
	for k := range m.Weights {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return invalidModel("linear model does not match feature columns: missing=%v extra=%v", missing, extra)
}

func (m *LinearModel) Predict(ctx context.Context, vec *core.FeatureVector) (float64, error) {
	if len(vec.Columns) != len(vec.Values) {
		return 0, modelError(core.ErrorCodeInternalError, fmt.Sprintf("vector has %d columns and %d values", len(vec.Columns), len(vec.Values)), nil)
	}
	score := m.Bias
	for i, col := range vec.Columns {
		score += m.Weights[col] * vec.Values[i]
	}
	return score, nil
}

var (
	_ Regressor       = (*LinearModel)(nil)
	_ ColumnValidator = (*LinearModel)(nil)
)
