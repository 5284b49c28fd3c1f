package feast

import (
	"strconv"
	"strings"
)

// NewClient 按 endpoint 创建客户端。
//
// endpoint 为 http(s):// 时使用 feature server 的 HTTP 接口，
// 否则按 "localhost:6565" 或 "grpc://localhost:6565" 解析为 gRPC 地址，未写端口时使用 6565。
//
// 示例：
//
//	client, err := feast.NewClient("localhost:6565", "homeprice")
//	client, err := feast.NewClient("http://localhost:6566", "homeprice")
func NewClient(endpoint, project string, opts ...ClientOption) (Client, error) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return NewHTTPClient(endpoint, project, opts...)
	}
	host, port := parseEndpoint(endpoint)
	return NewGrpcClient(host, port, project, opts...)
}

// parseEndpoint 解析端点地址，返回 host 和 port
func parseEndpoint(endpoint string) (string, int) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")

	if i := strings.LastIndex(endpoint, ":"); i > 0 {
		if port, err := strconv.Atoi(endpoint[i+1:]); err == nil {
			return endpoint[:i], port
		}
	}
	return endpoint, 0
}
