// Package service 提供远程模型推理服务的客户端，实现 core.MLService。
//
// 使用示例：
//
//	svc, err := service.NewMLService(&service.ServiceConfig{
//	    Type:      service.ServiceTypeKServeV2,
//	    Endpoint:  "http://localhost:8000",
//	    ModelName: "homeprice",
//	})
//	resp, err := svc.Predict(ctx, &core.MLPredictRequest{Instances: [][]float64{vec.Values}})
package service

// ServiceType 服务类型
type ServiceType string

const (
	ServiceTypeKServeV1  ServiceType = "kserve_v1"  // KServe V1 / TF Serving REST
	ServiceTypeKServeV2  ServiceType = "kserve_v2"  // Open Inference Protocol
	ServiceTypeTFServing ServiceType = "tf_serving" // TensorFlow Serving REST，同 V1
)

// ServiceConfig 服务配置
type ServiceConfig struct {
	// Type 服务类型
	Type ServiceType

	// Endpoint 服务根地址，如 "http://localhost:8000"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本
	ModelVersion string

	// Timeout 超时时间（秒）
	Timeout int

	// Auth 认证信息（可选）
	Auth *AuthConfig

	// V2InputName / V2OutputName V2 协议张量名（可选）
	V2InputName  string
	V2OutputName string
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string // "basic", "bearer", "api_key"
	Username string
	Password string
	Token    string
	APIKey   string
}
