// Package config 负责服务配置：YAML 文件 + .env / 环境变量覆盖，
// 以及按 {type, config} 描述构建模型与收入表加载器。
//
// 使用配置驱动时，需在入口处 import _ "github.com/rushteam/homeprice/config/builders"
// 以触发内置组件（model: linear / tree / rpc / kserve，income: csv / redis / postgres / sqlite / feast）的注册。
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/homeprice/pkg/dsl"
)

// EnvConfigPath 指定配置文件路径的环境变量
const EnvConfigPath = "HOMEPRICE_CONFIG"

// Config 服务配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Monitor MonitorConfig `yaml:"monitor"`

	// Regions 地区集合 JSON 的位置（本地路径 / http(s) URL / s3://bucket/key）
	Regions string `yaml:"regions"`
	// Schema 特征列顺序文件的位置，可选；为空时使用默认列顺序
	Schema string `yaml:"schema"`

	Income ComponentConfig `yaml:"income"`
	Model  ComponentConfig `yaml:"model"`

	Rules                []dsl.Rule `yaml:"rules"`
	BaselinePricePerSqft float64    `yaml:"baseline_price_per_sqft"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	GinMode          string        `yaml:"gin_mode"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	MaxBatchSize     int           `yaml:"max_batch_size"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text / json
}

// MonitorConfig 特征监控配置
type MonitorConfig struct {
	MaxSamples      int           `yaml:"max_samples"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// ComponentConfig 单个组件的配置：Type 选择构建器，Config 是构建器特定参数
type ComponentConfig struct {
	Type   string                 `yaml:"type" json:"type"`
	Config map[string]interface{} `yaml:"config" json:"config"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			GinMode:          "release",
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     30 * time.Second,
			ShutdownTimeout:  15 * time.Second,
			AllowedOrigins:   []string{"*"},
			MaxBatchSize:     100,
			BatchConcurrency: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Monitor: MonitorConfig{
			MaxSamples:      1000,
			RefreshInterval: 30 * time.Second,
		},
		Regions: "states.json",
		Income: ComponentConfig{
			Type:   "csv",
			Config: map[string]interface{}{"path": "median_income_by_zip_code.csv"},
		},
		BaselinePricePerSqft: 195,
	}
}

// Load 读取配置：先加载 .env（可选），path 为空时取 HOMEPRICE_CONFIG，
// 两者都为空时只使用默认值；最后应用环境变量覆盖并校验。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置。
//
// DATABASE_URL 仅在收入表来自 postgres / sqlite 且未配置 dsn 时生效，
// REDIS_ADDR 仅在收入表来自 redis 且未配置 addr 时生效。
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("GIN_MODE"); v != "" {
		c.Server.GinMode = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	switch c.Income.Type {
	case "postgres", "sqlite":
		c.Income.setDefault("dsn", getenv("DATABASE_URL"))
	case "redis":
		c.Income.setDefault("addr", getenv("REDIS_ADDR"))
	}
}

func (c *ComponentConfig) setDefault(key, value string) {
	if value == "" {
		return
	}
	if c.Config == nil {
		c.Config = make(map[string]interface{})
	}
	if s, _ := c.Config[key].(string); s == "" {
		c.Config[key] = value
	}
}

// Validate 校验配置完整性与组件类型是否已注册
func (c *Config) Validate() error {
	var errs []error
	if c.Regions == "" {
		errs = append(errs, errors.New("regions is required"))
	}
	if c.Model.Type == "" {
		errs = append(errs, errors.New("model.type is required"))
	} else if !modelRegistered(c.Model.Type) {
		errs = append(errs, fmt.Errorf("unsupported model type %q (supported: %v)", c.Model.Type, SupportedModelTypes()))
	}
	if c.Income.Type == "" {
		errs = append(errs, errors.New("income.type is required"))
	} else if !incomeRegistered(c.Income.Type) {
		errs = append(errs, fmt.Errorf("unsupported income type %q (supported: %v)", c.Income.Type, SupportedIncomeTypes()))
	}
	if c.BaselinePricePerSqft < 0 {
		errs = append(errs, errors.New("baseline_price_per_sqft must not be negative"))
	}
	if c.Server.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("server.max_batch_size must be positive"))
	}
	if c.Server.BatchConcurrency <= 0 {
		errs = append(errs, errors.New("server.batch_concurrency must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
