package utils

// Label 是附加在预测结果上的可解释标记，不参与模型计算。
// Value 与 Source 的语义由业务自定义，这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // rule / baseline / ...
}

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// PutLabel 把 incoming 合并进 labels[key]，labels 为 nil 时新建
func PutLabel(labels map[string]Label, key string, incoming Label) map[string]Label {
	if labels == nil {
		labels = make(map[string]Label)
	}
	labels[key] = MergeLabel(labels[key], incoming)
	return labels
}
