// Package estimator 把房源输入编码为特征向量，调用模型并返回整数房价。
//
// Predictor 构造后只读：地区集合、收入表、schema、模型和规则都在启动时加载完成，
// Predict 可以在任意多个 goroutine 中并发调用。
package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/model"
	"github.com/rushteam/homeprice/pkg/conv"
	"github.com/rushteam/homeprice/pkg/dsl"
	"github.com/rushteam/homeprice/pkg/logging"
	"github.com/rushteam/homeprice/pkg/utils"
)

// DefaultPricePerSqft 每平方英尺均价，用于给出面积基线估价
const DefaultPricePerSqft = 195.0

// Resources 启动时加载的静态资源，按引用共享
type Resources struct {
	Model   model.Regressor
	Regions *feature.RegionSet
	Income  *feature.IncomeTable
	Schema  *feature.Schema // 可选，nil 时使用默认列顺序
}

// Result 单条预测的完整结果
type Result struct {
	Price         int64                  `json:"price"`
	RawPrediction float64                `json:"raw_prediction"`
	BaselinePrice int64                  `json:"baseline_price"`
	PricePerSqft  float64                `json:"price_per_sqft,omitempty"`
	Labels        map[string]utils.Label `json:"labels,omitempty"`
	Encoding      *feature.EncodeInfo    `json:"encoding"`
	Vector        *core.FeatureVector    `json:"-"`
}

// Predictor 房价预测器
type Predictor struct {
	encoder      *feature.ListingEncoder
	model        model.Regressor
	rules        []*dsl.CompiledRule
	pricePerSqft float64
	logger       *slog.Logger
}

// Option 预测器选项
type Option func(*Predictor)

// WithRules 设置打标规则
func WithRules(rules ...*dsl.CompiledRule) Option {
	return func(p *Predictor) {
		p.rules = append(p.rules, rules...)
	}
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(p *Predictor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBaselinePricePerSqft 设置基线估价使用的每平方英尺均价
func WithBaselinePricePerSqft(v float64) Option {
	return func(p *Predictor) {
		if v > 0 {
			p.pricePerSqft = v
		}
	}
}

// New 创建预测器。模型实现了 ColumnValidator 时在这里检查列是否兼容，不兼容直接返回错误。
func New(res Resources, opts ...Option) (*Predictor, error) {
	if res.Model == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "estimator: model is required")
	}
	enc, err := feature.NewListingEncoder(res.Regions, res.Income, res.Schema)
	if err != nil {
		return nil, err
	}
	if v, ok := res.Model.(model.ColumnValidator); ok {
		if err := v.ValidateColumns(enc.Schema().FeatureColumns); err != nil {
			return nil, fmt.Errorf("estimator: model %s: %w", res.Model.Name(), err)
		}
	}

	p := &Predictor{
		encoder:      enc,
		model:        res.Model,
		pricePerSqft: DefaultPricePerSqft,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Schema 返回特征列顺序
func (p *Predictor) Schema() *feature.Schema { return p.encoder.Schema() }

// Encoder 返回底层编码器
func (p *Predictor) Encoder() *feature.ListingEncoder { return p.encoder }

// Model 返回底层模型
func (p *Predictor) Model() model.Regressor { return p.model }

// Encode 只做编码不调用模型
func (p *Predictor) Encode(l *core.Listing) (*core.FeatureVector, *feature.EncodeInfo, error) {
	if l == nil {
		return nil, nil, core.NewInvalidInputError("", errors.New("listing is nil"))
	}
	return p.encoder.Encode(l)
}

// Predict 编码、调用模型，并把原始输出向零截断为整数
func (p *Predictor) Predict(ctx context.Context, l *core.Listing) (int64, error) {
	vec, _, err := p.Encode(l)
	if err != nil {
		return 0, err
	}
	raw, err := p.model.Predict(ctx, vec)
	if err != nil {
		return 0, err
	}
	return truncate(raw)
}

// PredictMap 直接接受原始输入（键为 state, zipcode, homeType, ...）
func (p *Predictor) PredictMap(ctx context.Context, raw map[string]any) (int64, error) {
	l, err := ParseListing(raw)
	if err != nil {
		return 0, err
	}
	return p.Predict(ctx, l)
}

// PredictDetailed 返回预测值以及基线估价、规则标签和编码回退信息
func (p *Predictor) PredictDetailed(ctx context.Context, l *core.Listing) (*Result, error) {
	vec, info, err := p.Encode(l)
	if err != nil {
		return nil, err
	}
	raw, err := p.model.Predict(ctx, vec)
	if err != nil {
		return nil, err
	}
	return p.result(ctx, l, vec, info, raw)
}

// PredictBatch 批量预测：先全部编码，任一条输入无效则整体失败；模型支持批量时合并成一次调用
func (p *Predictor) PredictBatch(ctx context.Context, listings []*core.Listing) ([]*Result, error) {
	vecs := make([]*core.FeatureVector, len(listings))
	infos := make([]*feature.EncodeInfo, len(listings))
	for i, l := range listings {
		vec, info, err := p.Encode(l)
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", i, err)
		}
		vecs[i], infos[i] = vec, info
	}
	raws, err := model.PredictBatch(ctx, p.model, vecs)
	if err != nil {
		return nil, err
	}
	if len(raws) != len(vecs) {
		return nil, &core.DomainError{
			Module:  core.ModuleModel,
			Code:    core.ErrorCodeInternalError,
			Message: fmt.Sprintf("estimator: model returned %d predictions for %d listings", len(raws), len(vecs)),
		}
	}
	out := make([]*Result, len(listings))
	for i := range listings {
		r, err := p.result(ctx, listings[i], vecs[i], infos[i], raws[i])
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

func (p *Predictor) result(ctx context.Context, l *core.Listing, vec *core.FeatureVector, info *feature.EncodeInfo, raw float64) (*Result, error) {
	price, err := truncate(raw)
	if err != nil {
		return nil, err
	}
	r := &Result{
		Price:         price,
		RawPrediction: raw,
		Encoding:      info,
		Vector:        vec,
	}
	// 面积非法时基线留 0
	if baseline, err := conv.TruncateFloat(l.LivingArea * p.pricePerSqft); err == nil {
		r.BaselinePrice = baseline
	}
	if l.LivingArea > 0 {
		r.PricePerSqft = raw / l.LivingArea
	}
	r.Labels = p.applyRules(ctx, l, vec, raw)
	return r, nil
}

// applyRules 规则只打标签；执行失败记录日志后跳过
func (p *Predictor) applyRules(ctx context.Context, l *core.Listing, vec *core.FeatureVector, raw float64) map[string]utils.Label {
	if len(p.rules) == 0 {
		return nil
	}
	in := dsl.Input{Listing: l, Features: vec, Price: raw}
	var labels map[string]utils.Label
	for _, rule := range p.rules {
		ok, err := rule.Match(in)
		if err != nil {
			p.logger.WarnContext(ctx, "rule evaluation failed", "rule", rule.Name, "error", err)
			continue
		}
		if ok {
			labels = utils.PutLabel(labels, rule.Label, utils.Label{Value: rule.Name, Source: "rule"})
		}
	}
	return labels
}

// Health 检查依赖外部服务的模型
func (p *Predictor) Health(ctx context.Context) error {
	if h, ok := p.model.(model.HealthChecker); ok {
		return h.Health(ctx)
	}
	return nil
}

// Close 释放模型持有的连接
func (p *Predictor) Close(ctx context.Context) error {
	if c, ok := p.model.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

func truncate(raw float64) (int64, error) {
	n, err := conv.TruncateFloat(raw)
	if err != nil {
		return 0, &core.DomainError{
			Module:  core.ModuleModel,
			Code:    core.ErrorCodeInternalError,
			Message: fmt.Sprintf("estimator: invalid model output %v", raw),
			Err:     err,
		}
	}
	return n, nil
}
