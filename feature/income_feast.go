package feature

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/feast"
	"github.com/rushteam/homeprice/pkg/conv"
	"golang.org/x/sync/errgroup"
)

// FeastIncomeLoader 从 Feast 在线特征服务批量拉取收入中位数。
//
// Feast 只能按实体 key 读取，所以需要事先给出邮编全集（PostalCodes），
// 按 BatchSize 分批并发请求；服务端没有值的邮编不进入收入表（查找时回退到均值）。
type FeastIncomeLoader struct {
	Client      feast.Client
	Feature     string // 特征引用，如 "zip_income:median_income"
	EntityKey   string // 实体 key，如 "zip_code"
	PostalCodes []int64
	BatchSize   int
	Concurrency int
}

// Load 实现 IncomeLoader
func (l *FeastIncomeLoader) Load(ctx context.Context) (*IncomeTable, error) {
	if len(l.PostalCodes) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: feast income loader needs postal codes")
	}
	batch := l.BatchSize
	if batch <= 0 {
		batch = 500
	}
	entityKey := l.EntityKey
	if entityKey == "" {
		entityKey = DefaultPostalColumn
	}

	nBatches := (len(l.PostalCodes) + batch - 1) / batch
	results := make([][]IncomeRecord, nBatches)

	g, gctx := errgroup.WithContext(ctx)
	if l.Concurrency > 0 {
		g.SetLimit(l.Concurrency)
	}
	for b := 0; b < nBatches; b++ {
		b := b
		lo := b * batch
		hi := min(lo+batch, len(l.PostalCodes))
		g.Go(func() error {
			recs, err := l.fetch(gctx, entityKey, l.PostalCodes[lo:hi])
			if err != nil {
				return err
			}
			results[b] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeUnavailable,
			Message: "feature: fetch income from feast",
			Err:     err,
		}
	}

	var records []IncomeRecord
	for _, recs := range results {
		records = append(records, recs...)
	}
	return NewIncomeTable(records)
}

func (l *FeastIncomeLoader) fetch(ctx context.Context, entityKey string, postals []int64) ([]IncomeRecord, error) {
	rows := make([]map[string]interface{}, len(postals))
	for i, p := range postals {
		rows[i] = map[string]interface{}{entityKey: p}
	}
	resp, err := l.Client.GetOnlineFeatures(ctx, &feast.GetOnlineFeaturesRequest{
		Features:   []string{l.Feature},
		EntityRows: rows,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.FeatureVectors) != len(postals) {
		return nil, fmt.Errorf("expected %d feature vectors, got %d", len(postals), len(resp.FeatureVectors))
	}
	out := make([]IncomeRecord, 0, len(postals))
	for i, fv := range resp.FeatureVectors {
		income, ok := conv.ToFloat64(fv.Values[l.Feature])
		if !ok {
			continue
		}
		out = append(out, IncomeRecord{PostalCode: postals[i], MedianIncome: income})
	}
	return out, nil
}

// LoadPostalCodes 读取邮编清单（CSV 的 PostalColumn 列，或每行一个邮编的纯文本）
func LoadPostalCodes(ctx context.Context, src Source, location, column string) ([]int64, error) {
	data, err := ReadAll(ctx, src, location)
	if err != nil {
		return nil, err
	}
	return parsePostalList(data, column)
}

// parsePostalList 首行包含 column 时按 CSV 表头取列，否则取每行第一个字段；重复邮编只保留一次
func parsePostalList(data []byte, column string) ([]int64, error) {
	if column == "" {
		column = DefaultPostalColumn
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse postal list: %w", err)
	}
	idx := 0
	if len(rows) > 0 {
		for i, h := range rows[0] {
			if strings.TrimSpace(h) == column {
				idx = i
				rows = rows[1:]
				break
			}
		}
	}
	seen := make(map[int64]struct{}, len(rows))
	out := make([]int64, 0, len(rows))
	for n, row := range rows {
		if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			continue
		}
		p, err := conv.ParseInt(row[idx])
		if err != nil {
			return nil, fmt.Errorf("postal list row %d: %w", n+1, err)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

var _ IncomeLoader = (*FeastIncomeLoader)(nil)
