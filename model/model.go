package model

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/rushteam/homeprice/core"
)

// Regressor 是房价模型的最小抽象：输入按 schema 排好序的一行特征，输出一个原始预测值。
// 具体实现可以是本地模型（线性 / 树集成）或远程服务（KServe / 自定义 RPC）。
// 实现必须可以并发调用。
type Regressor interface {
	Name() string
	Predict(ctx context.Context, vec *core.FeatureVector) (float64, error)
}

// ColumnValidator 由能在启动时检查输入列的模型实现，不兼容时拒绝启动。
type ColumnValidator interface {
	ValidateColumns(columns []string) error
}

// BatchRegressor 支持一次预测多行的模型（远程模型用它合并请求）。
type BatchRegressor interface {
	Regressor
	PredictBatch(ctx context.Context, vecs []*core.FeatureVector) ([]float64, error)
}

// HealthChecker 由依赖外部服务的模型实现
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PredictBatch 对任意 Regressor 做批量预测：实现了 BatchRegressor 的走批量接口，否则逐行调用。
func PredictBatch(ctx context.Context, m Regressor, vecs []*core.FeatureVector) ([]float64, error) {
	if b, ok := m.(BatchRegressor); ok {
		return b.PredictBatch(ctx, vecs)
	}
	out := make([]float64, len(vecs))
	for i, v := range vecs {
		p, err := m.Predict(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func modelError(code, msg string, err error) error {
	return &core.DomainError{
		Module:  core.ModuleModel,
		Code:    code,
		Message: "model: " + msg,
		Err:     err,
	}
}

func invalidModel(format string, args ...interface{}) error {
	return modelError(core.ErrorCodeInvalidInput, fmt.Sprintf(format, args...), nil)
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalidModel("%s is not finite", name)
	}
	return nil
}

// batchRows 按第一行的列顺序展开批量输入；各行列名必须完全一致。
func batchRows(vecs []*core.FeatureVector) ([]string, [][]float64, error) {
	columns := vecs[0].Columns
	rows := make([][]float64, len(vecs))
	for i, v := range vecs {
		if len(v.Values) != len(columns) || !slices.Equal(v.Columns, columns) {
			return nil, nil, modelError(core.ErrorCodeInternalError,
				fmt.Sprintf("row %d columns do not match the batch columns", i), nil)
		}
		rows[i] = v.Values
	}
	return columns, rows, nil
}
