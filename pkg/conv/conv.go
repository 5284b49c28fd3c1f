// Package conv 提供类型转换工具：请求字段的强制转换（与训练侧 int()/float() 语义一致）
// 以及从 map[string]any（YAML/JSON 解析结果）中读取配置。
package conv

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNil 值为空
	ErrNil = errors.New("value is nil")
	// ErrUnsupportedType 类型不支持转换
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrNotFinite NaN/Inf 无法转为整数
	ErrNotFinite = errors.New("cannot convert non-finite float to integer")
	// ErrOutOfRange 超出 int64 范围
	ErrOutOfRange = errors.New("value out of int64 range")
)

// ToFloat64 将 any 转为 float64（不解析字符串）。
// 支持各类整数、float32/float64；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int16:
		return float64(val), true
	case int8:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint8:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// ToString 将 any 转为 string。
// 仅支持 string 类型，否则返回 ("", false)。
func ToString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ParseFloat 按 float() 语义转换：数字直接转换，字符串去掉首尾空白后解析
// （"2000"、"2e3"、"nan"、"inf"、"1_000.5" 均合法）。
func ParseFloat(v any) (float64, error) {
	if v == nil {
		return 0, ErrNil
	}
	switch val := v.(type) {
	case string:
		digits, ok := stripDigitSeparators(strings.TrimSpace(val))
		if !ok {
			return 0, fmt.Errorf("parse float %q: %w", val, strconv.ErrSyntax)
		}
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return 0, fmt.Errorf("parse float %q: %w", val, err)
		}
		return f, nil
	case json.Number:
		return ParseFloat(string(val))
	}
	if f, ok := ToFloat64(v); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// ParseInt 按 int() 语义转换：
//   - 整数原样返回，bool 视为 1/0
//   - 浮点数向零截断（3.9 → 3），NaN/Inf 报错
//   - 字符串必须是十进制整数（允许首尾空白、正负号、前导零与数字间的单个下划线），"3.5" 报错
func ParseInt(v any) (int64, error) {
	if v == nil {
		return 0, ErrNil
	}
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return 0, ErrOutOfRange
		}
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, ErrOutOfRange
		}
		return int64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case float32:
		return TruncateFloat(float64(val))
	case float64:
		return TruncateFloat(val)
	case string:
		digits, ok := stripDigitSeparators(strings.TrimSpace(val))
		if !ok {
			return 0, fmt.Errorf("parse int %q: %w", val, strconv.ErrSyntax)
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse int %q: %w", val, err)
		}
		return n, nil
	case json.Number:
		return ParseInt(string(val))
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// stripDigitSeparators 去掉数字之间的单个下划线（"1_000" → "1000"）；
// 下划线出现在开头、结尾、连续出现或旁边不是数字时返回 false。
func stripDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// TruncateFloat 向零截断为 int64，NaN/Inf 与越界值报错。
func TruncateFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotFinite
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, ErrOutOfRange
	}
	return int64(t), nil
}

// ConfigGet 从 map[string]any（如 YAML/JSON 解析结果）按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt64 从 config 取 int64。YAML/JSON 常得到 int 或 float64，此处兼容并统一为 int64。
func ConfigGetInt64(m map[string]any, key string, defaultVal int64) int64 {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case float64:
		return int64(val)
	case float32:
		return int64(val)
	default:
		return defaultVal
	}
}

// ConfigGetFloat64 从 config 取 float64，兼容 YAML 中写成整数的值。
func ConfigGetFloat64(m map[string]any, key string, defaultVal float64) float64 {
	if m == nil {
		return defaultVal
	}
	if f, ok := ToFloat64(m[key]); ok {
		return f
	}
	return defaultVal
}

// SliceAnyToString 将 []any 转为 []string。
// 元素为 string 直接保留，为数字时格式化为 "%.0f"。
func SliceAnyToString(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
			continue
		}
		if f, ok := ToFloat64(e); ok {
			out = append(out, fmt.Sprintf("%.0f", f))
		}
	}
	return out
}
