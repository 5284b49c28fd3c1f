package config

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/model"
	"github.com/rushteam/homeprice/pkg/logging"
)

// Env 构建组件时可用的公共依赖
type Env struct {
	// S3 读取 s3:// 资源的客户端，可选
	S3     feature.S3Client
	Logger *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}

// Source 按 location 的 scheme 选择数据源，返回数据源与在该数据源内的路径
func (e *Env) Source(location string) (feature.Source, string, error) {
	var s3 feature.S3Client
	if e != nil {
		s3 = e.S3
	}
	return feature.SourceFor(location, s3)
}

// ReadAll 读取整个资源
func (e *Env) ReadAll(ctx context.Context, location string) ([]byte, error) {
	src, path, err := e.Source(location)
	if err != nil {
		return nil, err
	}
	return feature.ReadAll(ctx, src, path)
}

// ModelBuilder 根据 config 构建模型
type ModelBuilder func(ctx context.Context, cfg map[string]interface{}, env *Env) (model.Regressor, error)

// IncomeBuilder 根据 config 构建收入表加载器
type IncomeBuilder func(ctx context.Context, cfg map[string]interface{}, env *Env) (feature.IncomeLoader, error)

var (
	registryMu     sync.RWMutex
	modelBuilders  = make(map[string]ModelBuilder)
	incomeBuilders = make(map[string]IncomeBuilder)
)

// RegisterModel 注册一种模型的构建逻辑。
// 建议在各组件的 init 中调用，例如：func init() { config.RegisterModel("linear", BuildLinear) }
func RegisterModel(typeName string, builder ModelBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	modelBuilders[typeName] = builder
}

// RegisterIncome 注册一种收入表来源的构建逻辑
func RegisterIncome(typeName string, builder IncomeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	incomeBuilders[typeName] = builder
}

// SupportedModelTypes 返回已注册的模型类型（排序），用于错误提示与校验
func SupportedModelTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(modelBuilders)
}

// SupportedIncomeTypes 返回已注册的收入表来源类型（排序）
func SupportedIncomeTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(incomeBuilders)
}

func sortedKeys[V any](m map[string]V) []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func modelRegistered(typeName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := modelBuilders[typeName]
	return ok
}

func incomeRegistered(typeName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := incomeBuilders[typeName]
	return ok
}

// BuildModel 按组件配置构建模型
func BuildModel(ctx context.Context, cc ComponentConfig, env *Env) (model.Regressor, error) {
	registryMu.RLock()
	builder, ok := modelBuilders[cc.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported model type %q (supported: %v)", cc.Type, SupportedModelTypes())
	}
	m, err := builder(ctx, cc.Config, env)
	if err != nil {
		return nil, fmt.Errorf("build model %s: %w", cc.Type, err)
	}
	return m, nil
}

// BuildIncome 按组件配置构建收入表加载器
func BuildIncome(ctx context.Context, cc ComponentConfig, env *Env) (feature.IncomeLoader, error) {
	registryMu.RLock()
	builder, ok := incomeBuilders[cc.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported income type %q (supported: %v)", cc.Type, SupportedIncomeTypes())
	}
	l, err := builder(ctx, cc.Config, env)
	if err != nil {
		return nil, fmt.Errorf("build income %s: %w", cc.Type, err)
	}
	return l, nil
}
