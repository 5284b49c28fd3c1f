package dsl

import (
	"errors"
	"fmt"
)

// Rule 条件成立时给预测结果打一个标签，不影响预测值。
//
//	rules:
//	  - name: large_lot
//	    when: listing.lot_area > 43560.0
//	    label: acreage
type Rule struct {
	Name  string `yaml:"name" json:"name"`
	When  string `yaml:"when" json:"when"`
	Label string `yaml:"label" json:"label"`
}

// CompiledRule 编译后的规则，可并发执行
type CompiledRule struct {
	Rule
	prg *Program
}

// CompileRule 编译单条规则；Label 为空时使用 Name
func CompileRule(r Rule) (*CompiledRule, error) {
	if r.Name == "" {
		return nil, errors.New("rule name is required")
	}
	if r.When == "" {
		return nil, fmt.Errorf("rule %q: when is required", r.Name)
	}
	prg, err := Compile(r.When)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	if r.Label == "" {
		r.Label = r.Name
	}
	return &CompiledRule{Rule: r, prg: prg}, nil
}

// CompileRules 按顺序编译规则，名称重复或任一规则编译失败都返回错误
func CompileRules(rules []Rule) ([]*CompiledRule, error) {
	out := make([]*CompiledRule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule %q", r.Name)
		}
		seen[r.Name] = struct{}{}
		c, err := CompileRule(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Match 对输入执行规则条件
func (r *CompiledRule) Match(in Input) (bool, error) {
	return r.prg.Run(in)
}
