package feast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HTTPClient 是 Feast feature server（`feast serve`）的 HTTP 客户端实现。
//
// 请求按列组织实体：
//
//	POST /get-online-features
//	{"features": ["zip_income:median_income"], "entities": {"zip_code": [90210, 10001]}, "full_feature_names": true}
//
// 响应同样按列返回，results[j].values[i] 是第 j 个特征在第 i 个实体上的值。
type HTTPClient struct {
	// Endpoint 服务端点，例如 "http://localhost:6566"
	Endpoint string

	// Project 项目名称（feature server 绑定单个项目，仅用于信息展示）
	Project string

	// Auth 认证信息
	Auth *AuthConfig

	httpClient *http.Client
}

// NewHTTPClient 创建一个新的 Feast HTTP 客户端。
func NewHTTPClient(endpoint, project string, opts ...ClientOption) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	config := &ClientConfig{
		Endpoint: endpoint,
		Project:  project,
		Timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &HTTPClient{
		Endpoint:   strings.TrimRight(config.Endpoint, "/"),
		Project:    config.Project,
		Auth:       config.Auth,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type httpOnlineResponse struct {
	Metadata struct {
		FeatureNames []string `json:"feature_names"`
	} `json:"metadata"`
	Results []struct {
		Values   []interface{} `json:"values"`
		Statuses []string      `json:"statuses"`
	} `json:"results"`
}

// GetOnlineFeatures 获取在线特征（实现 Client 接口）
func (c *HTTPClient) GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error) {
	if len(req.Features) == 0 {
		return nil, fmt.Errorf("features are required")
	}
	if len(req.EntityRows) == 0 {
		return nil, fmt.Errorf("entity rows are required")
	}
	entities, err := entityColumns(req.EntityRows)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(map[string]interface{}{
		"features":           req.Features,
		"entities":           entities,
		"full_feature_names": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/get-online-features", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Auth != nil && c.Auth.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("feast error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
	}

	var result httpOnlineResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Metadata.FeatureNames) != len(result.Results) {
		return nil, fmt.Errorf("response has %d feature names and %d result columns",
			len(result.Metadata.FeatureNames), len(result.Results))
	}

	// full_feature_names 形如 "zip_income__median_income"，映射回请求里的 "zip_income:median_income"
	refs := make(map[string]string, len(req.Features))
	for _, f := range req.Features {
		refs[strings.Replace(f, ":", "__", 1)] = f
	}

	vectors := make([]FeatureVector, len(req.EntityRows))
	for i := range vectors {
		vectors[i] = FeatureVector{Values: make(map[string]interface{}, len(req.Features)), EntityRow: req.EntityRows[i]}
	}
	for j, name := range result.Metadata.FeatureNames {
		ref, ok := refs[name]
		if !ok {
			continue // 实体列
		}
		col := result.Results[j]
		if len(col.Values) != len(vectors) {
			return nil, fmt.Errorf("feature %s: expected %d values, got %d", ref, len(vectors), len(col.Values))
		}
		for i, v := range col.Values {
			if i < len(col.Statuses) && col.Statuses[i] != "PRESENT" {
				continue
			}
			if v != nil {
				vectors[i].Values[ref] = v
			}
		}
	}
	return &GetOnlineFeaturesResponse{FeatureVectors: vectors}, nil
}

// entityColumns 把按行的实体转换为按列的形式，所有行必须有相同的 key
func entityColumns(rows []map[string]interface{}) (map[string][]interface{}, error) {
	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make(map[string][]interface{}, len(keys))
	for _, k := range keys {
		cols[k] = make([]interface{}, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(keys) {
			return nil, fmt.Errorf("entity row %d: expected keys %v", i, keys)
		}
		for _, k := range keys {
			v, ok := row[k]
			if !ok {
				return nil, fmt.Errorf("entity row %d: missing key %q", i, k)
			}
			cols[k][i] = v
		}
	}
	return cols, nil
}

// Close 关闭空闲连接
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ Client = (*HTTPClient)(nil)
