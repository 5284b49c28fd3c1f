package feature

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/pkg/conv"
)

var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLIncomeOptions SQL 收入表的表名与列名，只允许普通标识符
type SQLIncomeOptions struct {
	Table        string
	PostalColumn string // 默认 zip_code
	IncomeColumn string // 默认 median_income
	// OrderBy 决定重复邮编时哪一行先出现（通常是主键）；为空时按邮编、收入排序
	OrderBy string
}

// SQLIncomeLoader 从关系型数据库的一张表读取收入表（Postgres / SQLite）。
type SQLIncomeLoader struct {
	DB   *sqlx.DB
	opts SQLIncomeOptions
}

type incomeRow struct {
	PostalCode   sql.NullString  `db:"zip_code"`
	MedianIncome sql.NullFloat64 `db:"median_income"`
}

// NewSQLIncomeLoader 创建 SQL 收入表加载器；标识符非法时返回 INVALID_INPUT
func NewSQLIncomeLoader(db *sqlx.DB, opts SQLIncomeOptions) (*SQLIncomeLoader, error) {
	if opts.PostalColumn == "" {
		opts.PostalColumn = DefaultPostalColumn
	}
	if opts.IncomeColumn == "" {
		opts.IncomeColumn = DefaultIncomeColumn
	}
	ids := []string{opts.Table, opts.PostalColumn, opts.IncomeColumn}
	if opts.OrderBy != "" {
		ids = append(ids, opts.OrderBy)
	}
	for _, id := range ids {
		if !sqlIdentifier.MatchString(id) {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
				fmt.Sprintf("feature: invalid sql identifier %q", id))
		}
	}
	return &SQLIncomeLoader{DB: db, opts: opts}, nil
}

// query 总是带 ORDER BY，同一张表多次加载得到相同的行序
func (l *SQLIncomeLoader) query() string {
	order := l.opts.OrderBy
	if order == "" {
		order = l.opts.PostalColumn + ", " + l.opts.IncomeColumn
	}
	return fmt.Sprintf("SELECT %s AS zip_code, %s AS median_income FROM %s ORDER BY %s",
		l.opts.PostalColumn, l.opts.IncomeColumn, l.opts.Table, order)
}

// Load 实现 IncomeLoader；NULL 收入的行跳过，NULL 邮编的行只计入均值
func (l *SQLIncomeLoader) Load(ctx context.Context) (*IncomeTable, error) {
	var rows []incomeRow
	if err := l.DB.SelectContext(ctx, &rows, l.query()); err != nil {
		return nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeUnavailable,
			Message: "feature: query income table " + l.opts.Table,
			Err:     err,
		}
	}
	records := make([]IncomeRecord, 0, len(rows))
	for _, r := range rows {
		if !r.MedianIncome.Valid {
			continue
		}
		if !r.PostalCode.Valid || IsMissingValue(r.PostalCode.String) {
			records = append(records, IncomeRecord{MedianIncome: r.MedianIncome.Float64, Unkeyed: true})
			continue
		}
		postal, err := conv.ParseInt(r.PostalCode.String)
		if err != nil {
			return nil, &core.DomainError{
				Module:  core.ModuleFeature,
				Code:    core.ErrorCodeInvalidInput,
				Message: fmt.Sprintf("feature: income table %s: %s %q", l.opts.Table, l.opts.PostalColumn, r.PostalCode.String),
				Err:     err,
			}
		}
		records = append(records, IncomeRecord{PostalCode: postal, MedianIncome: r.MedianIncome.Float64})
	}
	return NewIncomeTable(records)
}

var _ IncomeLoader = (*SQLIncomeLoader)(nil)
