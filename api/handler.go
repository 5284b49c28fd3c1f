// Package api 提供房价预测的 HTTP 接口（gin）。
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/estimator"
	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/pkg/logging"
)

// Options 处理器配置
type Options struct {
	MaxBatchSize     int
	BatchConcurrency int
	Logger           *slog.Logger
}

// Handler 预测接口处理器
type Handler struct {
	predictor   *estimator.Predictor
	monitor     *feature.MemoryFeatureMonitor
	maxBatch    int
	concurrency int
	logger      *slog.Logger
}

// NewHandler 创建处理器；monitor 为 nil 时不做特征监控
func NewHandler(p *estimator.Predictor, monitor *feature.MemoryFeatureMonitor, opts Options) *Handler {
	h := &Handler{
		predictor:   p,
		monitor:     monitor,
		maxBatch:    opts.MaxBatchSize,
		concurrency: opts.BatchConcurrency,
		logger:      opts.Logger,
	}
	if h.maxBatch <= 0 {
		h.maxBatch = 100
	}
	if h.concurrency <= 0 {
		h.concurrency = 8
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	return h
}

// PredictResponse 单条预测响应
type PredictResponse struct {
	RequestID string `json:"request_id"`
	*estimator.Result
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
}

// BatchRequest 批量预测请求
type BatchRequest struct {
	Listings []map[string]any `json:"listings"`
}

// BatchItem 批量预测中单条的结果，失败时只有 Error 字段
type BatchItem struct {
	Index int `json:"index"`
	*estimator.Result
	Error *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse 批量预测响应
type BatchResponse struct {
	RequestID string      `json:"request_id"`
	Results   []BatchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// Predict handles POST /api/v1/predict
func (h *Handler) Predict(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		h.abort(c, core.NewDomainError(core.ModuleListing, core.ErrorCodeInvalidInput, "invalid request: "+err.Error()))
		return
	}
	res, err := h.predict(c.Request.Context(), raw)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, PredictResponse{RequestID: requestID(c), Result: res})
}

// PredictBatch handles POST /api/v1/predict/batch
//
// 每条独立预测，单条失败不影响其它条目；并发度受 BatchConcurrency 限制。
func (h *Handler) PredictBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, core.NewDomainError(core.ModuleListing, core.ErrorCodeInvalidInput, "invalid request: "+err.Error()))
		return
	}
	switch {
	case len(req.Listings) == 0:
		h.abort(c, core.NewDomainError(core.ModuleListing, core.ErrorCodeInvalidInput, "listings is empty"))
		return
	case len(req.Listings) > h.maxBatch:
		h.abort(c, core.NewDomainError(core.ModuleListing, core.ErrorCodeInvalidInput,
			fmt.Sprintf("too many listings: %d > %d", len(req.Listings), h.maxBatch)))
		return
	}

	ctx := c.Request.Context()
	items := make([]BatchItem, len(req.Listings))
	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, raw := range req.Listings {
		i, raw := i, raw
		g.Go(func() error {
			items[i].Index = i
			res, err := h.predict(ctx, raw)
			if err != nil {
				items[i].Error = errorResponse(err)
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	resp := BatchResponse{RequestID: requestID(c), Results: items}
	for _, it := range items {
		if it.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) predict(ctx context.Context, raw map[string]any) (*estimator.Result, error) {
	l, err := estimator.ParseListing(raw)
	if err != nil {
		return nil, err
	}
	res, err := h.predictor.PredictDetailed(ctx, l)
	if err != nil {
		if h.monitor != nil && !core.IsInvalidInput(err) {
			h.monitor.RecordFeatureError(ctx, feature.MetricPrice, err)
		}
		return nil, err
	}
	if h.monitor != nil {
		feature.ObserveListing(ctx, h.monitor, res.Vector, res.Encoding)
		h.monitor.RecordFeatureUsage(ctx, feature.MetricPrice, float64(res.Price))
	}
	return res, nil
}

// Schema handles GET /api/v1/schema
func (h *Handler) Schema(c *gin.Context) {
	schema := h.predictor.Schema()
	homeTypes := make([]string, 0, len(core.HomeTypes()))
	for _, t := range core.HomeTypes() {
		homeTypes = append(homeTypes, string(t))
	}
	c.JSON(http.StatusOK, gin.H{
		"feature_columns": schema.FeatureColumns,
		"feature_count":   schema.Len(),
		"model_version":   schema.ModelVersion,
		"model":           h.predictor.Model().Name(),
		"regions":         h.predictor.Encoder().Regions().Codes(),
		"home_types":      homeTypes,
		"income_mean":     h.predictor.Encoder().Income().Mean(),
	})
}

// Stats handles GET /api/v1/stats
func (h *Handler) Stats(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusOK, gin.H{"features": []*feature.FeatureStats{}})
		return
	}
	if name := c.Query("feature"); name != "" {
		stats, err := h.monitor.GetFeatureStats(c.Request.Context(), name)
		if err != nil {
			h.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
		return
	}
	if c.Query("refresh") == "true" {
		h.monitor.Refresh()
	}
	c.JSON(http.StatusOK, gin.H{"features": h.monitor.Snapshot(c.Request.Context())})
}

func (h *Handler) abort(c *gin.Context, err error) {
	resp := errorResponse(err)
	resp.RequestID = requestID(c)
	status := statusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed", "request_id", resp.RequestID, "error", err)
	}
	c.AbortWithStatusJSON(status, resp)
}

func errorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{Error: err.Error(), Code: core.ErrorCodeInternalError}
	var de *core.DomainError
	if errors.As(err, &de) {
		resp.Code = de.Code
		resp.Field = de.Field
	}
	return resp
}

// statusCode INVALID_INPUT → 400，NOT_FOUND → 404，其余 → 500
func statusCode(err error) int {
	switch {
	case core.IsInvalidInput(err):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
