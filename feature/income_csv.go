package feature

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/pkg/conv"
)

// 收入 CSV 默认列名
const (
	DefaultPostalColumn = "zip_code"
	DefaultIncomeColumn = "median_income"
)

// CSVIncomeOptions CSV 收入表的列名配置
type CSVIncomeOptions struct {
	PostalColumn string
	IncomeColumn string
}

func (o CSVIncomeOptions) withDefaults() CSVIncomeOptions {
	if o.PostalColumn == "" {
		o.PostalColumn = DefaultPostalColumn
	}
	if o.IncomeColumn == "" {
		o.IncomeColumn = DefaultIncomeColumn
	}
	return o
}

// LoadIncomeCSV 从带表头的 CSV 读取收入表。
//
// 邮编按整数解析（"02134" → 2134）。缺失值按 pandas 的默认标记识别（空白、NA、N/A、NULL、nan 等）：
// 收入缺失的行跳过，邮编缺失的行只计入均值；其它无法解析的单元格报错并给出行号。
func LoadIncomeCSV(r io.Reader, opts CSVIncomeOptions) (*IncomeTable, error) {
	opts = opts.withDefaults()
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, incomeCSVError(0, errors.New("missing header"))
		}
		return nil, incomeCSVError(0, err)
	}
	postalIdx, incomeIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case opts.PostalColumn:
			postalIdx = i
		case opts.IncomeColumn:
			incomeIdx = i
		}
	}
	if postalIdx < 0 || incomeIdx < 0 {
		return nil, incomeCSVError(1, fmt.Errorf("header must contain %q and %q", opts.PostalColumn, opts.IncomeColumn))
	}

	var records []IncomeRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, incomeCSVError(line, err)
		}
		if IsMissingValue(row[incomeIdx]) {
			continue
		}
		income, err := conv.ParseFloat(row[incomeIdx])
		if err != nil {
			return nil, incomeCSVError(line, fmt.Errorf("%s: %w", opts.IncomeColumn, err))
		}
		if IsMissingValue(row[postalIdx]) {
			records = append(records, IncomeRecord{MedianIncome: income, Unkeyed: true})
			continue
		}
		postal, err := conv.ParseInt(row[postalIdx])
		if err != nil {
			return nil, incomeCSVError(line, fmt.Errorf("%s: %w", opts.PostalColumn, err))
		}
		records = append(records, IncomeRecord{PostalCode: postal, MedianIncome: income})
	}
	return NewIncomeTable(records)
}

func incomeCSVError(line int, err error) error {
	return &core.DomainError{
		Module:  core.ModuleFeature,
		Code:    core.ErrorCodeInvalidInput,
		Message: fmt.Sprintf("feature: income csv line %d", line),
		Err:     err,
	}
}

// CSVIncomeLoader 从 Source 读取 CSV 收入表
type CSVIncomeLoader struct {
	Source   Source
	Location string
	Options  CSVIncomeOptions
}

// Load 实现 IncomeLoader
func (l *CSVIncomeLoader) Load(ctx context.Context) (*IncomeTable, error) {
	rc, err := l.Source.Open(ctx, l.Location)
	if err != nil {
		return nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeUnavailable,
			Message: "feature: open income csv " + l.Location,
			Err:     err,
		}
	}
	defer rc.Close()
	return LoadIncomeCSV(rc, l.Options)
}

var _ IncomeLoader = (*CSVIncomeLoader)(nil)
