// Package builders 注册内置的模型与收入表来源，入口处以 _ 方式引入即可。
package builders

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rushteam/homeprice/config"
	"github.com/rushteam/homeprice/feast"
	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/model"
	"github.com/rushteam/homeprice/pkg/conv"
	"github.com/rushteam/homeprice/service"
	"github.com/rushteam/homeprice/store"
)

func init() {
	config.RegisterModel("linear", BuildLinearModel)
	config.RegisterModel("tree", BuildTreeModel)
	config.RegisterModel("rpc", BuildRPCModel)
	config.RegisterModel("kserve", BuildKServeModel)

	config.RegisterIncome("csv", BuildCSVIncome)
	config.RegisterIncome("redis", BuildRedisIncome)
	config.RegisterIncome("postgres", BuildSQLIncome("postgres"))
	config.RegisterIncome("sqlite", BuildSQLIncome("sqlite3"))
	config.RegisterIncome("feast", BuildFeastIncome)
}

func requireString(cfg map[string]interface{}, key string) (string, error) {
	v := conv.ConfigGet(cfg, key, "")
	if v == "" {
		return "", fmt.Errorf("%s not found", key)
	}
	return v, nil
}

func timeoutOf(cfg map[string]interface{}, def time.Duration) time.Duration {
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return def
}

// BuildLinearModel config: path
func BuildLinearModel(ctx context.Context, cfg map[string]interface{}, env *config.Env) (model.Regressor, error) {
	path, err := requireString(cfg, "path")
	if err != nil {
		return nil, err
	}
	data, err := env.ReadAll(ctx, path)
	if err != nil {
		return nil, err
	}
	return model.LoadLinearModel(bytes.NewReader(data))
}

// BuildTreeModel config: path
func BuildTreeModel(ctx context.Context, cfg map[string]interface{}, env *config.Env) (model.Regressor, error) {
	path, err := requireString(cfg, "path")
	if err != nil {
		return nil, err
	}
	data, err := env.ReadAll(ctx, path)
	if err != nil {
		return nil, err
	}
	return model.LoadTreeEnsemble(bytes.NewReader(data))
}

// BuildRPCModel config: endpoint, name, timeout（秒）
func BuildRPCModel(ctx context.Context, cfg map[string]interface{}, env *config.Env) (model.Regressor, error) {
	endpoint, err := requireString(cfg, "endpoint")
	if err != nil {
		return nil, err
	}
	name := conv.ConfigGet(cfg, "name", "rpc")
	return model.NewRPCModel(name, endpoint, timeoutOf(cfg, 5*time.Second)), nil
}

// BuildKServeModel config: endpoint, model_name, model_version, protocol（v1 / v2 / tf_serving），
// timeout（秒）, token, input_name, output_name, columns（模型导出时的列顺序，可选）
func BuildKServeModel(ctx context.Context, cfg map[string]interface{}, env *config.Env) (model.Regressor, error) {
	sc := &service.ServiceConfig{
		Endpoint:     conv.ConfigGet(cfg, "endpoint", ""),
		ModelName:    conv.ConfigGet(cfg, "model_name", ""),
		ModelVersion: conv.ConfigGet(cfg, "model_version", ""),
		Timeout:      int(conv.ConfigGetInt64(cfg, "timeout", 0)),
		V2InputName:  conv.ConfigGet(cfg, "input_name", ""),
		V2OutputName: conv.ConfigGet(cfg, "output_name", ""),
	}
	switch p := conv.ConfigGet(cfg, "protocol", "v2"); p {
	case "v1":
		sc.Type = service.ServiceTypeKServeV1
	case "v2":
		sc.Type = service.ServiceTypeKServeV2
	case "tf_serving":
		sc.Type = service.ServiceTypeTFServing
	default:
		return nil, fmt.Errorf("unknown kserve protocol: %s", p)
	}
	if token := conv.ConfigGet(cfg, "token", ""); token != "" {
		sc.Auth = &service.AuthConfig{Type: "bearer", Token: token}
	}
	svc, err := service.NewMLService(sc)
	if err != nil {
		return nil, err
	}
	return model.NewRemoteModel(sc.ModelName, svc, conv.SliceAnyToString(cfg["columns"])...), nil
}

// BuildCSVIncome config: path, postal_column, income_column
func BuildCSVIncome(ctx context.Context, cfg map[string]interface{}, env *config.Env) (feature.IncomeLoader, error) {
	location, err := requireString(cfg, "path")
	if err != nil {
		return nil, err
	}
	src, path, err := env.Source(location)
	if err != nil {
		return nil, err
	}
	return &feature.CSVIncomeLoader{
		Source:   src,
		Location: path,
		Options: feature.CSVIncomeOptions{
			PostalColumn: conv.ConfigGet(cfg, "postal_column", ""),
			IncomeColumn: conv.ConfigGet(cfg, "income_column", ""),
		},
	}, nil
}

// BuildRedisIncome config: addr, password, db, key。连接只在加载期间保持。
func BuildRedisIncome(ctx context.Context, cfg map[string]interface{}, env *config.Env) (feature.IncomeLoader, error) {
	opts := store.RedisOptions{
		Addr:     conv.ConfigGet(cfg, "addr", "localhost:6379"),
		Password: conv.ConfigGet(cfg, "password", ""),
		DB:       int(conv.ConfigGetInt64(cfg, "db", 0)),
	}
	key := conv.ConfigGet(cfg, "key", feature.DefaultIncomeHashKey)
	return feature.IncomeLoaderFunc(func(ctx context.Context) (*feature.IncomeTable, error) {
		rs, err := store.NewRedisStore(ctx, opts)
		if err != nil {
			return nil, err
		}
		defer rs.Close()
		return feature.NewStoreIncomeLoader(rs, key).Load(ctx)
	}), nil
}

// BuildSQLIncome 返回指定驱动的构建器。config: dsn, table, postal_column, income_column, order_by
func BuildSQLIncome(driver string) config.IncomeBuilder {
	return func(ctx context.Context, cfg map[string]interface{}, env *config.Env) (feature.IncomeLoader, error) {
		dsn, err := requireString(cfg, "dsn")
		if err != nil {
			return nil, err
		}
		opts := feature.SQLIncomeOptions{
			Table:        conv.ConfigGet(cfg, "table", "median_income_by_zip_code"),
			PostalColumn: conv.ConfigGet(cfg, "postal_column", ""),
			IncomeColumn: conv.ConfigGet(cfg, "income_column", ""),
			OrderBy:      conv.ConfigGet(cfg, "order_by", ""),
		}
		// 先校验标识符，连接在 Load 时才建立
		if _, err := feature.NewSQLIncomeLoader(nil, opts); err != nil {
			return nil, err
		}
		return feature.IncomeLoaderFunc(func(ctx context.Context) (*feature.IncomeTable, error) {
			db, err := sqlx.ConnectContext(ctx, driver, dsn)
			if err != nil {
				return nil, fmt.Errorf("connect %s: %w", driver, err)
			}
			defer db.Close()
			l, err := feature.NewSQLIncomeLoader(db, opts)
			if err != nil {
				return nil, err
			}
			return l.Load(ctx)
		}), nil
	}
}

// BuildFeastIncome config: endpoint, project, feature, entity_key, postal_codes（邮编清单位置）,
// postal_column, batch_size, concurrency, timeout（秒）, token, tls
func BuildFeastIncome(ctx context.Context, cfg map[string]interface{}, env *config.Env) (feature.IncomeLoader, error) {
	endpoint, err := requireString(cfg, "endpoint")
	if err != nil {
		return nil, err
	}
	project, err := requireString(cfg, "project")
	if err != nil {
		return nil, err
	}
	postalLocation, err := requireString(cfg, "postal_codes")
	if err != nil {
		return nil, err
	}
	ref := conv.ConfigGet(cfg, "feature", "zip_income:median_income")
	entityKey := conv.ConfigGet(cfg, "entity_key", feature.DefaultPostalColumn)
	postalColumn := conv.ConfigGet(cfg, "postal_column", feature.DefaultPostalColumn)
	batchSize := int(conv.ConfigGetInt64(cfg, "batch_size", 0))
	concurrency := int(conv.ConfigGetInt64(cfg, "concurrency", 0))

	opts := []feast.ClientOption{feast.WithTimeout(timeoutOf(cfg, 10*time.Second))}
	if token := conv.ConfigGet(cfg, "token", ""); token != "" {
		opts = append(opts, feast.WithAuth(&feast.AuthConfig{Type: "static", Token: token}))
	}
	if conv.ConfigGet(cfg, "tls", false) {
		opts = append(opts, feast.WithTLS())
	}

	return feature.IncomeLoaderFunc(func(ctx context.Context) (*feature.IncomeTable, error) {
		src, path, err := env.Source(postalLocation)
		if err != nil {
			return nil, err
		}
		postals, err := feature.LoadPostalCodes(ctx, src, path, postalColumn)
		if err != nil {
			return nil, fmt.Errorf("load postal codes: %w", err)
		}
		client, err := feast.NewClient(endpoint, project, opts...)
		if err != nil {
			return nil, err
		}
		defer client.Close()
		l := &feature.FeastIncomeLoader{
			Client:      client,
			Feature:     ref,
			EntityKey:   entityKey,
			PostalCodes: postals,
			BatchSize:   batchSize,
			Concurrency: concurrency,
		}
		return l.Load(ctx)
	}), nil
}
