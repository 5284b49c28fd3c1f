package feature

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSource HTTP 接口数据源
type HTTPSource struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSource 创建 HTTP 接口数据源
//
// 用法：
//
//	src := feature.NewHTTPSource(5 * time.Second)
//	rc, err := src.Open(ctx, "http://assets.example.com/states.json")
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// NewHTTPSourceWithClient 使用自定义 HTTP 客户端创建数据源
func NewHTTPSourceWithClient(client *http.Client) *HTTPSource {
	return &HTTPSource{
		client:  client,
		timeout: client.Timeout,
	}
}

// Open 从 HTTP 接口读取资源（响应体整体读入内存，资源都是小文件）
func (s *HTTPSource) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("HTTP 请求失败: status=%d, body=%s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
