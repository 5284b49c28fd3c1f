package model

import (
	"context"
	"fmt"
	"slices"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/service"
)

// RemoteModel 把 core.MLService（KServe / TF Serving 等）适配为 Regressor。
// 特征按 schema 顺序以位置张量发送，列名取自输入向量并随请求附带。
// 构造后只读，可被多个 Predictor 共享。
type RemoteModel struct {
	name    string
	svc     core.MLService
	columns []string
}

// NewRemoteModel 创建远程模型。columns 是模型导出时的输入列，可选；
// 给出时启动阶段会与 schema 比对，否则只能在调用时由服务端校验。
func NewRemoteModel(name string, svc core.MLService, columns ...string) *RemoteModel {
	if name == "" {
		name = "remote"
	}
	return &RemoteModel{name: name, svc: svc, columns: slices.Clone(columns)}
}

func (m *RemoteModel) Name() string { return m.name }

// ValidateColumns 只读比对，不修改模型
func (m *RemoteModel) ValidateColumns(columns []string) error {
	if len(m.columns) == 0 || slices.Equal(m.columns, columns) {
		return nil
	}
	return invalidModel("remote model %s expects columns %v, schema has %v", m.name, m.columns, columns)
}

func (m *RemoteModel) Predict(ctx context.Context, vec *core.FeatureVector) (float64, error) {
	out, err := m.PredictBatch(ctx, []*core.FeatureVector{vec})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func (m *RemoteModel) PredictBatch(ctx context.Context, vecs []*core.FeatureVector) ([]float64, error) {
	if len(vecs) == 0 {
		return []float64{}, nil
	}
	columns, instances, err := batchRows(vecs)
	if err != nil {
		return nil, err
	}
	resp, err := m.svc.Predict(ctx, &core.MLPredictRequest{
		Instances: instances,
		Columns:   columns,
	})
	if err != nil {
		return nil, modelError(core.ErrorCodeUnavailable, "remote predict", err)
	}
	if len(resp.Predictions) != len(vecs) {
		return nil, modelError(core.ErrorCodeInternalError,
			fmt.Sprintf("remote returned %d predictions for %d rows", len(resp.Predictions), len(vecs)), nil)
	}
	return resp.Predictions, nil
}

// Health 透传服务健康检查，供 /health 使用
func (m *RemoteModel) Health(ctx context.Context) error {
	return service.TestConnection(ctx, m.svc)
}

// Close 关闭底层服务
func (m *RemoteModel) Close(ctx context.Context) error {
	return m.svc.Close(ctx)
}

var (
	_ BatchRegressor  = (*RemoteModel)(nil)
	_ ColumnValidator = (*RemoteModel)(nil)
	_ HealthChecker   = (*RemoteModel)(nil)
)
