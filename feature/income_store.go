package feature

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/pkg/conv"
)

// DefaultIncomeHashKey Redis 中收入表 Hash 的默认 key
const DefaultIncomeHashKey = "homeprice:median_income"

// StoreIncomeLoader 从 KeyValueStore 的 Hash 中一次性读出收入表
// （field 为邮编，value 为收入中位数的十进制文本）。
type StoreIncomeLoader struct {
	Store core.KeyValueStore
	Key   string
}

// NewStoreIncomeLoader 创建 Store 收入表加载器
func NewStoreIncomeLoader(store core.KeyValueStore, key string) *StoreIncomeLoader {
	if key == "" {
		key = DefaultIncomeHashKey
	}
	return &StoreIncomeLoader{Store: store, Key: key}
}

// Load 实现 IncomeLoader
func (l *StoreIncomeLoader) Load(ctx context.Context) (*IncomeTable, error) {
	fields, err := l.Store.HGetAll(ctx, l.Key)
	if err != nil {
		return nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeUnavailable,
			Message: fmt.Sprintf("feature: read income hash %q from %s", l.Key, l.Store.Name()),
			Err:     err,
		}
	}
	if len(fields) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound,
			fmt.Sprintf("feature: income hash %q is empty", l.Key))
	}
	records := make([]IncomeRecord, 0, len(fields))
	for field, raw := range fields {
		postal, err := conv.ParseInt(field)
		if err != nil {
			return nil, incomeFieldError(l.Key, field, err)
		}
		income, err := conv.ParseFloat(string(raw))
		if err != nil {
			return nil, incomeFieldError(l.Key, field, err)
		}
		records = append(records, IncomeRecord{PostalCode: postal, MedianIncome: income})
	}
	// Hash 无序，排序后均值的累加顺序才稳定
	sort.Slice(records, func(i, j int) bool { return records[i].PostalCode < records[j].PostalCode })
	return NewIncomeTable(records)
}

func incomeFieldError(key, field string, err error) error {
	return &core.DomainError{
		Module:  core.ModuleFeature,
		Code:    core.ErrorCodeInvalidInput,
		Message: fmt.Sprintf("feature: income hash %q field %q", key, field),
		Err:     err,
	}
}

// SaveIncomeTable 把收入记录写入 Hash，便于从 CSV 导入 Redis
func SaveIncomeTable(ctx context.Context, store core.KeyValueStore, key string, records []IncomeRecord) error {
	if key == "" {
		key = DefaultIncomeHashKey
	}
	for _, r := range records {
		v := []byte(strconv.FormatFloat(r.MedianIncome, 'f', -1, 64))
		if err := store.HSet(ctx, key, strconv.FormatInt(r.PostalCode, 10), v); err != nil {
			return fmt.Errorf("save income %d: %w", r.PostalCode, err)
		}
	}
	return nil
}

var _ IncomeLoader = (*StoreIncomeLoader)(nil)
