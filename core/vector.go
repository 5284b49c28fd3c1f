package core

// FeatureVector 是送入模型的一行特征。
// Columns 与 Values 一一对应，顺序必须与模型训练时完全一致；
// 模型本身不校验列名，顺序错了只会静默地产生错误的预测。
type FeatureVector struct {
	Columns []string
	Values  []float64
}

// Len 返回特征维度
func (v *FeatureVector) Len() int {
	return len(v.Values)
}

// Get 按列名取值
func (v *FeatureVector) Get(column string) (float64, bool) {
	for i, c := range v.Columns {
		if c == column {
			return v.Values[i], true
		}
	}
	return 0, false
}

// ToMap 转为列名到值的映射（用于日志/调试，不保证顺序）
func (v *FeatureVector) ToMap() map[string]float64 {
	out := make(map[string]float64, len(v.Columns))
	for i, c := range v.Columns {
		out[c] = v.Values[i]
	}
	return out
}
