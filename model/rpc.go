package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rushteam/homeprice/core"
)

// RPCModel 是通过 HTTP 调用自建模型服务的 Regressor 实现。
//
// 请求格式（JSON），instances 每行的取值顺序与 columns 一致：
//
//	{"columns": ["bathrooms", "bedrooms", ...], "instances": [[2, 3, ...], ...]}
//
// 响应格式（JSON）：
//
//	{"scores": [412345.9, ...]}
type RPCModel struct {
	name     string
	Endpoint string // 例如 "http://localhost:8080/predict"
	Timeout  time.Duration
	Client   *http.Client
}

type rpcRequest struct {
	Columns   []string    `json:"columns"`
	Instances [][]float64 `json:"instances"`
}

func NewRPCModel(name, endpoint string, timeout time.Duration) *RPCModel {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if name == "" {
		name = "rpc"
	}
	return &RPCModel{
		name:     name,
		Endpoint: endpoint,
		Timeout:  timeout,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (m *RPCModel) Name() string {
	return m.name
}

// Predict 调用远程模型服务进行预测（单行，内部调用批量接口）。
func (m *RPCModel) Predict(ctx context.Context, vec *core.FeatureVector) (float64, error) {
	scores, err := m.PredictBatch(ctx, []*core.FeatureVector{vec})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// PredictBatch 调用远程模型服务进行批量预测。
func (m *RPCModel) PredictBatch(ctx context.Context, vecs []*core.FeatureVector) ([]float64, error) {
	if len(vecs) == 0 {
		return []float64{}, nil
	}

	columns, rows, err := batchRows(vecs)
	if err != nil {
		return nil, err
	}
	jsonData, err := json.Marshal(rpcRequest{Columns: columns, Instances: rows})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, modelError(core.ErrorCodeUnavailable, "rpc call "+m.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, modelError(core.ErrorCodeUnavailable, fmt.Sprintf("rpc error: status=%d, body=%s", resp.StatusCode, string(body)), nil)
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, modelError(core.ErrorCodeInternalError, "decode rpc response", err)
	}
	if len(result.Scores) != len(vecs) {
		return nil, modelError(core.ErrorCodeInternalError,
			fmt.Sprintf("response scores count mismatch: expected %d, got %d", len(vecs), len(result.Scores)), nil)
	}
	return result.Scores, nil
}

var _ BatchRegressor = (*RPCModel)(nil)
