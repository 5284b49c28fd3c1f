package model

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"slices"

	"github.com/rushteam/homeprice/core"
)

// TreeEnsemble 回归树集成（随机森林 / GBDT 导出）。
//
// 预测：y = BaseScore + LearningRate * agg(tree_1(x), ..., tree_n(x))，
// agg 为 sum（GBDT）或 mean（随机森林）。
// 内部节点按 x[feature] <= threshold 走左子树，否则走右子树；
// 特征值为 NaN 时按 default_left 决定方向。
//
// 导出格式：
//
//	{
//	  "base_score": 250000, "learning_rate": 0.1, "aggregation": "sum",
//	  "n_features": 60, "feature_columns": [...],
//	  "trees": [{"nodes": [
//	    {"feature": 2, "threshold": 1800, "left": 1, "right": 2},
//	    {"leaf": true, "value": -20000},
//	    {"leaf": true, "value": 35000}
//	  ]}]
//	}
type TreeEnsemble struct {
	BaseScore      float64  `json:"base_score"`
	LearningRate   float64  `json:"learning_rate"`
	Aggregation    string   `json:"aggregation"`
	NFeatures      int      `json:"n_features"`
	FeatureColumns []string `json:"feature_columns,omitempty"`
	Trees          []Tree   `json:"trees"`

	maxFeature int
}

// Tree 单棵树，Nodes[0] 为根
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode 树节点
type TreeNode struct {
	Leaf        bool    `json:"leaf"`
	Value       float64 `json:"value"`
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	DefaultLeft bool    `json:"default_left"`
}

// 聚合方式
const (
	AggregationSum  = "sum"
	AggregationMean = "mean"
)

// LoadTreeEnsemble 从 JSON 读取树集成并校验结构
func LoadTreeEnsemble(r io.Reader) (*TreeEnsemble, error) {
	m := &TreeEnsemble{LearningRate: 1}
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, modelError(core.ErrorCodeInvalidInput, "parse tree ensemble", err)
	}
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *TreeEnsemble) init() error {
	if m.Aggregation == "" {
		m.Aggregation = AggregationSum
	}
	if m.Aggregation != AggregationSum && m.Aggregation != AggregationMean {
		return invalidModel("unknown aggregation %q", m.Aggregation)
	}
	if len(m.Trees) == 0 {
		return invalidModel("tree ensemble has no trees")
	}
	if err := checkFinite("base_score", m.BaseScore); err != nil {
		return err
	}
	if err := checkFinite("learning_rate", m.LearningRate); err != nil {
		return err
	}
	if len(m.FeatureColumns) > 0 {
		if m.NFeatures == 0 {
			m.NFeatures = len(m.FeatureColumns)
		}
		if m.NFeatures != len(m.FeatureColumns) {
			return invalidModel("n_features %d != %d feature_columns", m.NFeatures, len(m.FeatureColumns))
		}
	}

	m.maxFeature = -1
	for ti := range m.Trees {
		if err := m.checkTree(ti); err != nil {
			return err
		}
	}
	if m.NFeatures > 0 && m.maxFeature >= m.NFeatures {
		return invalidModel("feature index %d out of range for n_features %d", m.maxFeature, m.NFeatures)
	}
	return nil
}

// checkTree 校验子节点下标合法、从根出发无环且每个节点恰好被访问一次
func (m *TreeEnsemble) checkTree(ti int) error {
	nodes := m.Trees[ti].Nodes
	if len(nodes) == 0 {
		return invalidModel("tree %d is empty", ti)
	}
	visited := make([]bool, len(nodes))
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			return invalidModel("tree %d: node %d reached twice", ti, i)
		}
		visited[i] = true
		n := nodes[i]
		if n.Leaf {
			if err := checkFinite("leaf value", n.Value); err != nil {
				return err
			}
			continue
		}
		if n.Feature < 0 {
			return invalidModel("tree %d: node %d has negative feature index", ti, i)
		}
		if math.IsNaN(n.Threshold) {
			return invalidModel("tree %d: node %d threshold is NaN", ti, i)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= 0 || child >= len(nodes) {
				return invalidModel("tree %d: node %d child %d out of range", ti, i, child)
			}
			stack = append(stack, child)
		}
		m.maxFeature = max(m.maxFeature, n.Feature)
	}
	if slices.Contains(visited, false) {
		return invalidModel("tree %d has unreachable nodes", ti)
	}
	return nil
}

func (m *TreeEnsemble) Name() string { return "tree_ensemble" }

// ValidateColumns 检查列数与（如果导出了）列名顺序
func (m *TreeEnsemble) ValidateColumns(columns []string) error {
	if len(m.FeatureColumns) > 0 && !slices.Equal(m.FeatureColumns, columns) {
		return invalidModel("tree ensemble feature_columns do not match the schema")
	}
	if m.NFeatures > 0 && m.NFeatures != len(columns) {
		return invalidModel("tree ensemble expects %d features, schema has %d", m.NFeatures, len(columns))
	}
	if m.maxFeature >= len(columns) {
		return invalidModel("tree ensemble uses feature %d, schema has %d", m.maxFeature, len(columns))
	}
	return nil
}

func (m *TreeEnsemble) Predict(ctx context.Context, vec *core.FeatureVector) (float64, error) {
	x := vec.Values
	if m.maxFeature >= len(x) {
		return 0, modelError(core.ErrorCodeInternalError, "feature vector shorter than the model expects", nil)
	}
	var sum float64
	for ti := range m.Trees {
		sum += m.Trees[ti].eval(x)
	}
	if m.Aggregation == AggregationMean {
		sum /= float64(len(m.Trees))
	}
	return m.BaseScore + m.LearningRate*sum, nil
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v <= n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
	}
}

var (
	_ Regressor       = (*TreeEnsemble)(nil)
	_ ColumnValidator = (*TreeEnsemble)(nil)
)
