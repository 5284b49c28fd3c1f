package feature

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/homeprice/core"
)

// ErrFeatureNotFound 监控中没有该特征的记录
var ErrFeatureNotFound = core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound, "feature: no stats for feature")

// FeatureMonitor 是特征监控接口，用于观察线上输入的分布、回退率与错误率。
type FeatureMonitor interface {
	// RecordFeatureUsage 记录特征取值
	RecordFeatureUsage(ctx context.Context, featureName string, value float64)

	// RecordFeatureMissing 记录特征缺失或回退（reason 如 "zip_not_found"）
	RecordFeatureMissing(ctx context.Context, featureName string, reason string)

	// RecordFeatureError 记录特征相关错误
	RecordFeatureError(ctx context.Context, featureName string, err error)

	// GetFeatureStats 获取特征统计信息
	GetFeatureStats(ctx context.Context, featureName string) (*FeatureStats, error)
}

// FeatureStats 特征统计信息
type FeatureStats struct {
	FeatureName    string           `json:"feature_name"`
	UsageCount     int64            `json:"usage_count"`
	MissingCount   int64            `json:"missing_count"`
	MissingReasons map[string]int64 `json:"missing_reasons,omitempty"`
	ErrorCount     int64            `json:"error_count"`
	Mean           float64          `json:"mean"`
	Std            float64          `json:"std"`
	Min            float64          `json:"min"`
	Max            float64          `json:"max"`
	P50            float64          `json:"p50"`
	P95            float64          `json:"p95"`
	P99            float64          `json:"p99"`
	LastUpdateTime time.Time        `json:"last_update_time"`
}

func (s *FeatureStats) clone() *FeatureStats {
	c := *s
	if s.MissingReasons != nil {
		c.MissingReasons = make(map[string]int64, len(s.MissingReasons))
		for k, v := range s.MissingReasons {
			c.MissingReasons[k] = v
		}
	}
	return &c
}

// MemoryFeatureMonitor 是内存特征监控实现。
// 每个特征保留最近 maxSamples 个样本，后台协程定期重算分布统计。
type MemoryFeatureMonitor struct {
	mu             sync.RWMutex
	featureStats   map[string]*FeatureStats
	featureValues  map[string][]float64
	maxSamples     int
	updateInterval time.Duration
	updateTicker   *time.Ticker
	stopUpdate     chan struct{}
	closeOnce      sync.Once
}

// NewMemoryFeatureMonitor 创建内存特征监控，每 10 秒重算一次统计
func NewMemoryFeatureMonitor(maxSamples int) *MemoryFeatureMonitor {
	return NewMemoryFeatureMonitorWithInterval(maxSamples, 10*time.Second)
}

// NewMemoryFeatureMonitorWithInterval 创建内存特征监控并指定统计重算间隔
func NewMemoryFeatureMonitorWithInterval(maxSamples int, interval time.Duration) *MemoryFeatureMonitor {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	monitor := &MemoryFeatureMonitor{
		featureStats:   make(map[string]*FeatureStats),
		featureValues:  make(map[string][]float64),
		maxSamples:     maxSamples,
		updateInterval: interval,
		stopUpdate:     make(chan struct{}),
	}

	monitor.updateTicker = time.NewTicker(monitor.updateInterval)
	go monitor.updateStats()

	return monitor
}

func (m *MemoryFeatureMonitor) updateStats() {
	for {
		select {
		case <-m.updateTicker.C:
			m.Refresh()
		case <-m.stopUpdate:
			m.updateTicker.Stop()
			return
		}
	}
}

// Refresh 立即按当前样本重算统计
func (m *MemoryFeatureMonitor) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for featureName, values := range m.featureValues {
		if len(values) == 0 {
			continue
		}
		stats := m.statsLocked(featureName)
		computed := ComputeStatistics(values)
		stats.Mean = computed.Mean
		stats.Std = computed.Std
		stats.Min = computed.Min
		stats.Max = computed.Max
		stats.P50 = computed.Median
		stats.P95 = computed.P95
		stats.P99 = computed.P99
		stats.LastUpdateTime = now
	}
}

func (m *MemoryFeatureMonitor) statsLocked(featureName string) *FeatureStats {
	stats := m.featureStats[featureName]
	if stats == nil {
		stats = &FeatureStats{FeatureName: featureName}
		m.featureStats[featureName] = stats
	}
	return stats
}

func (m *MemoryFeatureMonitor) RecordFeatureUsage(ctx context.Context, featureName string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statsLocked(featureName).UsageCount++

	values := m.featureValues[featureName]
	if len(values) >= m.maxSamples {
		values = values[1:]
	}
	m.featureValues[featureName] = append(values, value)
}

func (m *MemoryFeatureMonitor) RecordFeatureMissing(ctx context.Context, featureName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.statsLocked(featureName)
	stats.MissingCount++
	if reason != "" {
		if stats.MissingReasons == nil {
			stats.MissingReasons = make(map[string]int64)
		}
		stats.MissingReasons[reason]++
	}
}

func (m *MemoryFeatureMonitor) RecordFeatureError(ctx context.Context, featureName string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statsLocked(featureName).ErrorCount++
}

func (m *MemoryFeatureMonitor) GetFeatureStats(ctx context.Context, featureName string) (*FeatureStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, ok := m.featureStats[featureName]
	if !ok {
		return nil, ErrFeatureNotFound
	}
	return stats.clone(), nil
}

// Snapshot 返回全部特征统计（按特征名排序）
func (m *MemoryFeatureMonitor) Snapshot(ctx context.Context) []*FeatureStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*FeatureStats, 0, len(m.featureStats))
	for _, s := range m.featureStats {
		out = append(out, s.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeatureName < out[j].FeatureName })
	return out
}

// Close 关闭监控，停止更新协程（可重复调用）
func (m *MemoryFeatureMonitor) Close() {
	m.closeOnce.Do(func() { close(m.stopUpdate) })
}

// 监控中使用的特征名与回退原因
const (
	MetricPrice = "price"

	ReasonZipNotFound     = "zip_not_found"
	ReasonUnknownRegion   = "unknown_region"
	ReasonUnknownHomeType = "unknown_home_type"
)

// ObserveListing 把一次编码的输入与回退情况写入监控
func ObserveListing(ctx context.Context, m FeatureMonitor, vec *core.FeatureVector, info *EncodeInfo) {
	if m == nil || vec == nil || info == nil {
		return
	}
	for _, col := range []string{ColumnLivingArea, ColumnLotArea, ColumnBedrooms, ColumnBathrooms, ColumnMedianIncome} {
		if v, ok := vec.Get(col); ok {
			m.RecordFeatureUsage(ctx, col, v)
		}
	}
	if info.IncomeFallback {
		m.RecordFeatureMissing(ctx, ColumnMedianIncome, ReasonZipNotFound)
	}
	if info.UnknownRegion {
		m.RecordFeatureMissing(ctx, KeyRegion, ReasonUnknownRegion)
	}
	if info.UnknownHomeType {
		m.RecordFeatureMissing(ctx, KeyHomeType, ReasonUnknownHomeType)
	}
}

var _ FeatureMonitor = (*MemoryFeatureMonitor)(nil)
