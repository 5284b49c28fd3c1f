package feature

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rushteam/homeprice/core"
)

// IncomeRecord 收入表中的一行（邮编 → 收入中位数）
type IncomeRecord struct {
	PostalCode   int64   `db:"zip_code"`
	MedianIncome float64 `db:"median_income"`
	// Unkeyed 邮编缺失的行：收入计入均值，但不能被查到
	Unkeyed bool `db:"-"`
}

// naTokens 与 pandas read_csv 默认识别为缺失值的标记一致（区分大小写）
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// IsMissingValue 判断单元格是否为缺失值（先去掉首尾空白）
func IsMissingValue(cell string) bool {
	_, ok := naTokens[strings.TrimSpace(cell)]
	return ok
}

// IncomeTable 邮编到收入中位数的查找表。
//
// 构造时一次性算好全表均值，之后只读：Lookup/Mean 无锁、可并发调用。
// 重复邮编以第一次出现的行为准，均值覆盖全部有效行；NaN/Inf 行被跳过，
// 对应邮编在查找时视为不存在（回退到均值）。邮编缺失的行只计入均值。
type IncomeTable struct {
	byPostal map[int64]float64
	mean     float64
	rows     int
}

// NewIncomeTable 由记录构造收入表；没有任何有效行时返回错误（均值无定义）。
func NewIncomeTable(records []IncomeRecord) (*IncomeTable, error) {
	t := &IncomeTable{byPostal: make(map[int64]float64, len(records))}
	var sum float64
	for _, r := range records {
		if math.IsNaN(r.MedianIncome) || math.IsInf(r.MedianIncome, 0) {
			continue
		}
		if _, dup := t.byPostal[r.PostalCode]; !dup && !r.Unkeyed {
			t.byPostal[r.PostalCode] = r.MedianIncome
		}
		sum += r.MedianIncome
		t.rows++
	}
	if t.rows == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: income table has no usable rows")
	}
	t.mean = sum / float64(t.rows)
	return t, nil
}

// Lookup 按邮编查找收入中位数
func (t *IncomeTable) Lookup(postal int64) (float64, bool) {
	v, ok := t.byPostal[postal]
	return v, ok
}

// Mean 全表收入均值（缺失邮编的填充值）
func (t *IncomeTable) Mean() float64 { return t.mean }

// Len 不同邮编的数量
func (t *IncomeTable) Len() int { return len(t.byPostal) }

// Rows 参与均值计算的行数（含重复邮编）
func (t *IncomeTable) Rows() int { return t.rows }

// Resolve 返回邮编对应的收入；不存在时返回均值，fallback=true。
func (t *IncomeTable) Resolve(postal int64) (income float64, fallback bool) {
	if v, ok := t.byPostal[postal]; ok {
		return v, false
	}
	return t.mean, true
}

func (t *IncomeTable) String() string {
	return fmt.Sprintf("IncomeTable(zips=%d, rows=%d, mean=%.2f)", len(t.byPostal), t.rows, t.mean)
}

// IncomeLoader 收入表加载器接口
// 支持从不同来源加载收入表（CSV 文件、Redis Hash、SQL 表、Feast 特征服务等）
type IncomeLoader interface {
	Load(ctx context.Context) (*IncomeTable, error)
}

// IncomeLoaderFunc 函数式 IncomeLoader
type IncomeLoaderFunc func(ctx context.Context) (*IncomeTable, error)

func (f IncomeLoaderFunc) Load(ctx context.Context) (*IncomeTable, error) {
	return f(ctx)
}
