package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/pkg/conv"
)

// KServeProtocol 指定 KServe 协议版本。
const (
	KServeV1 = "v1"
	KServeV2 = "v2"
)

// KServeClient 把房价特征矩阵发给 KServe / TF Serving 托管的回归模型。
//
//	v1: POST {endpoint}/v1/models/{name}[/versions/{v}]:predict  {"instances": [[...]]} -> {"predictions": [...]}
//	v2: POST {endpoint}/v2/models/{name}[/versions/{v}]/infer    单个 FP64 张量 [rows, dim] -> outputs[].data
//
// 每个实例对应一个标量价格，返回数量与实例数不一致视为错误。
type KServeClient struct {
	Endpoint     string
	ModelName    string
	ModelVersion string
	// Protocol "v1" 或 "v2"，默认 "v2"
	Protocol string
	// V2InputName 输入张量名，默认 "input0"
	V2InputName string
	// V2OutputName 输出张量名；为空或未命中时取 outputs[0]
	V2OutputName string
	Auth         *AuthConfig

	httpClient *http.Client
}

// KServeOption 配置 KServe 客户端
type KServeOption func(*KServeClient)

// NewKServeClient 创建 KServe 客户端，endpoint 为服务根地址。
func NewKServeClient(endpoint, modelName string, opts ...KServeOption) *KServeClient {
	c := &KServeClient{
		Endpoint:    strings.TrimRight(endpoint, "/"),
		ModelName:   modelName,
		Protocol:    KServeV2,
		V2InputName: "input0",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithKServeVersion(version string) KServeOption {
	return func(c *KServeClient) { c.ModelVersion = version }
}

// WithKServeProtocol 未知协议保持默认值。
func WithKServeProtocol(protocol string) KServeOption {
	return func(c *KServeClient) {
		if protocol == KServeV1 || protocol == KServeV2 {
			c.Protocol = protocol
		}
	}
}

func WithKServeV2InputName(name string) KServeOption {
	return func(c *KServeClient) { c.V2InputName = name }
}

func WithKServeV2OutputName(name string) KServeOption {
	return func(c *KServeClient) { c.V2OutputName = name }
}

func WithKServeTimeout(timeout time.Duration) KServeOption {
	return func(c *KServeClient) { c.httpClient.Timeout = timeout }
}

func WithKServeAuth(auth *AuthConfig) KServeOption {
	return func(c *KServeClient) { c.Auth = auth }
}

// Predict 实现 core.MLService。
func (c *KServeClient) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if len(req.Instances) == 0 {
		return nil, fmt.Errorf("kserve: instances are required")
	}
	dim := len(req.Instances[0])
	for i, row := range req.Instances {
		if len(row) != dim {
			return nil, fmt.Errorf("kserve: instance %d has %d values, want %d", i, len(row), dim)
		}
	}

	var (
		predictions []float64
		version     = c.ModelVersion
		err         error
	)
	if c.Protocol == KServeV1 {
		predictions, err = c.predictV1(ctx, req.Instances)
	} else {
		predictions, version, err = c.predictV2(ctx, req.Instances, dim)
	}
	if err != nil {
		return nil, err
	}
	if len(predictions) != len(req.Instances) {
		return nil, fmt.Errorf("kserve %s: predictions count mismatch: expected %d, got %d",
			c.Protocol, len(req.Instances), len(predictions))
	}
	return &core.MLPredictResponse{Predictions: predictions, ModelVersion: version}, nil
}

// modelURL 返回 {endpoint}/{protocol}/models/{name}[/versions/{v}]
func (c *KServeClient) modelURL() string {
	u := fmt.Sprintf("%s/%s/models/%s", c.Endpoint, c.Protocol, c.ModelName)
	if c.ModelVersion != "" {
		u += "/versions/" + c.ModelVersion
	}
	return u
}

func (c *KServeClient) predictV1(ctx context.Context, instances [][]float64) ([]float64, error) {
	body, err := c.do(ctx, http.MethodPost, c.modelURL()+":predict", map[string]any{"instances": instances})
	if err != nil {
		return nil, err
	}
	var out struct {
		Predictions []any `json:"predictions"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("kserve v1 parse response: %w", err)
	}
	return scalars(out.Predictions), nil
}

type v2Tensor struct {
	Name     string `json:"name"`
	Shape    []int  `json:"shape,omitempty"`
	Datatype string `json:"datatype,omitempty"`
	Data     []any  `json:"data"`
}

func (c *KServeClient) predictV2(ctx context.Context, instances [][]float64, dim int) ([]float64, string, error) {
	// 行优先展平
	data := make([]any, 0, len(instances)*dim)
	for _, row := range instances {
		for _, v := range row {
			data = append(data, v)
		}
	}
	in := v2Tensor{Name: c.V2InputName, Shape: []int{len(instances), dim}, Datatype: "FP64", Data: data}
	body, err := c.do(ctx, http.MethodPost, c.modelURL()+"/infer", map[string]any{"inputs": []v2Tensor{in}})
	if err != nil {
		return nil, "", err
	}

	var out struct {
		ModelVersion string     `json:"model_version"`
		Outputs      []v2Tensor `json:"outputs"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", fmt.Errorf("kserve v2 parse response: %w", err)
	}
	if len(out.Outputs) == 0 {
		return nil, "", fmt.Errorf("kserve v2 empty outputs")
	}
	tensor := out.Outputs[0]
	for _, o := range out.Outputs {
		if c.V2OutputName != "" && o.Name == c.V2OutputName {
			tensor = o
			break
		}
	}
	version := out.ModelVersion
	if version == "" {
		version = c.ModelVersion
	}
	return scalars(tensor.Data), version, nil
}

// scalars 取每个元素的数值；嵌套数组（多输出）取第一个。
func scalars(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if arr, ok := v.([]any); ok {
			if len(arr) == 0 {
				continue
			}
			v = arr[0]
		}
		if f, ok := conv.ToFloat64(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// do 发送请求并返回 200 响应体；payload 为 nil 时不带请求体。
func (c *KServeClient) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("kserve marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("kserve create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kserve request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("kserve %s %s: status=%d, body=%s", method, url, resp.StatusCode, string(msg))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kserve read response: %w", err)
	}
	return body, nil
}

// Health 实现 core.MLService：v1 查询模型状态，v2 查询模型 ready。
func (c *KServeClient) Health(ctx context.Context) error {
	url := c.modelURL()
	if c.Protocol == KServeV2 {
		url += "/ready"
	}
	_, err := c.do(ctx, http.MethodGet, url, nil)
	return err
}

// Close 实现 core.MLService。
func (c *KServeClient) Close(ctx context.Context) error {
	return nil
}

func (c *KServeClient) addAuth(req *http.Request) {
	if c.Auth == nil {
		return
	}
	switch c.Auth.Type {
	case "basic":
		req.SetBasicAuth(c.Auth.Username, c.Auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", c.Auth.APIKey)
	}
}

var _ core.MLService = (*KServeClient)(nil)
