package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/homeprice/core"
)

// NewMLService 根据配置创建 MLService 实例（工厂方法）。
func NewMLService(config *ServiceConfig) (core.MLService, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	opts := []KServeOption{WithKServeTimeout(timeout)}
	if config.ModelVersion != "" {
		opts = append(opts, WithKServeVersion(config.ModelVersion))
	}
	if config.Auth != nil {
		opts = append(opts, WithKServeAuth(config.Auth))
	}

	switch config.Type {
	case ServiceTypeKServeV1, ServiceTypeTFServing:
		opts = append(opts, WithKServeProtocol(KServeV1))
	case ServiceTypeKServeV2, "":
		opts = append(opts, WithKServeProtocol(KServeV2))
		if config.V2InputName != "" {
			opts = append(opts, WithKServeV2InputName(config.V2InputName))
		}
		if config.V2OutputName != "" {
			opts = append(opts, WithKServeV2OutputName(config.V2OutputName))
		}
	default:
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotSupported,
			fmt.Sprintf("service: unsupported service type: %s", config.Type))
	}
	return NewKServeClient(config.Endpoint, config.ModelName, opts...), nil
}

// ValidateConfig 验证服务配置
func ValidateConfig(config *ServiceConfig) error {
	if config == nil {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: config is required")
	}
	if !strings.HasPrefix(config.Endpoint, "http://") && !strings.HasPrefix(config.Endpoint, "https://") {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			fmt.Sprintf("service: endpoint must be an http(s) url, got %q", config.Endpoint))
	}
	if config.ModelName == "" {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: model name is required")
	}
	return nil
}

// TestConnection 测试服务连接
func TestConnection(ctx context.Context, svc core.MLService) error {
	if svc == nil {
		return fmt.Errorf("service is nil")
	}
	return svc.Health(ctx)
}
