package config

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/homeprice/estimator"
	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/model"
	"github.com/rushteam/homeprice/pkg/dsl"
)

// Resources 启动时并发加载的静态资源
type Resources struct {
	estimator.Resources
	Rules []*dsl.CompiledRule
}

// LoadResources 并发加载地区集合、收入表、schema 与模型，全部成功才返回。
// 任一资源失败时取消其余加载。
func LoadResources(ctx context.Context, cfg *Config, env *Env) (*Resources, error) {
	rules, err := dsl.CompileRules(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	var (
		regions *feature.RegionSet
		income  *feature.IncomeTable
		schema  *feature.Schema
		m       model.Regressor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := env.ReadAll(gctx, cfg.Regions)
		if err != nil {
			return fmt.Errorf("load regions: %w", err)
		}
		regions, err = feature.LoadRegionSet(bytes.NewReader(data))
		return err
	})
	g.Go(func() error {
		loader, err := BuildIncome(gctx, cfg.Income, env)
		if err != nil {
			return err
		}
		income, err = loader.Load(gctx)
		if err != nil {
			return fmt.Errorf("load income: %w", err)
		}
		return nil
	})
	if cfg.Schema != "" {
		g.Go(func() error {
			data, err := env.ReadAll(gctx, cfg.Schema)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}
			schema, err = feature.LoadSchema(bytes.NewReader(data))
			return err
		})
	}
	g.Go(func() error {
		var err error
		m, err = BuildModel(gctx, cfg.Model, env)
		return err
	})
	if err := g.Wait(); err != nil {
		if c, ok := m.(interface{ Close(context.Context) error }); ok {
			_ = c.Close(ctx)
		}
		return nil, err
	}

	env.logger().InfoContext(ctx, "resources loaded",
		"regions", regions.Len(),
		"income_zips", income.Len(),
		"income_mean", income.Mean(),
		"model", m.Name(),
		"rules", len(rules),
	)
	return &Resources{
		Resources: estimator.Resources{
			Model:   m,
			Regions: regions,
			Income:  income,
			Schema:  schema,
		},
		Rules: rules,
	}, nil
}

// Bootstrap 加载资源并创建预测器
func Bootstrap(ctx context.Context, cfg *Config, env *Env) (*estimator.Predictor, error) {
	res, err := LoadResources(ctx, cfg, env)
	if err != nil {
		return nil, err
	}
	p, err := estimator.New(res.Resources,
		estimator.WithRules(res.Rules...),
		estimator.WithBaselinePricePerSqft(cfg.BaselinePricePerSqft),
		estimator.WithLogger(env.logger()),
	)
	if err != nil {
		if c, ok := res.Model.(interface{ Close(context.Context) error }); ok {
			_ = c.Close(ctx)
		}
		return nil, err
	}
	return p, nil
}
