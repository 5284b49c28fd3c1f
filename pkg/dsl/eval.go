package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/homeprice/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("listing", cel.DynType),
		cel.Variable("features", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("price", cel.DoubleType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Input 是表达式可见的数据
type Input struct {
	Listing  *core.Listing
	Features *core.FeatureVector
	Price    float64
}

// Program 是编译好的房源规则表达式，使用 CEL (Common Expression Language) 实现，可并发执行。
//
// 表达式语法（CEL 标准语法）：
//   - 输入字段：listing.state == "CA" / listing.home_type == "CONDO" / listing.zipcode == 90210
//   - 数值：listing.lot_area > 43560.0 / listing.bedrooms >= 5
//   - 特征：features.median_income < 40000.0
//   - 预测：price > 1000000.0
//   - 逻辑：listing.state == "CA" && price > 2000000.0
type Program struct {
	Expr string
	prg  cel.Program
}

// Compile 编译表达式；类型检查不通过或结果不是 bool 时报错
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	return compile(env, expr)
}

func compile(env *cel.Env, expr string) (*Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{Expr: expr, prg: prg}, nil
}

// Run 对输入执行表达式
func (p *Program) Run(input Input) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(input))
	if err != nil {
		// 访问不存在的 key 也会走到这里
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据，键名与请求 JSON 的 snake_case 形式一致
func buildInput(in Input) map[string]interface{} {
	listing := map[string]interface{}{}
	if l := in.Listing; l != nil {
		listing = map[string]interface{}{
			"state":       string(l.Region),
			"zipcode":     l.PostalCode,
			"home_type":   string(l.HomeType),
			"living_area": l.LivingArea,
			"bedrooms":    l.Bedrooms,
			"bathrooms":   l.Bathrooms,
			"lot_area":    l.LotArea,
		}
	}
	features := map[string]float64{}
	if in.Features != nil {
		features = in.Features.ToMap()
	}
	return map[string]interface{}{
		"listing":  listing,
		"features": features,
		"price":    in.Price,
	}
}
