package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rushteam/homeprice/core"
	"github.com/rushteam/homeprice/estimator"
	"github.com/rushteam/homeprice/feature"
	"github.com/rushteam/homeprice/pkg/dsl"
	"github.com/rushteam/homeprice/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// areaModel 按居住面积给价，面积为负时报错
type areaModel struct {
	healthErr error
}

func (m *areaModel) Name() string { return "area" }

func (m *areaModel) Predict(_ context.Context, vec *core.FeatureVector) (float64, error) {
	area, _ := vec.Get(feature.ColumnLivingArea)
	if area < 0 {
		return 0, errors.New("negative area")
	}
	return area*200 + 0.9, nil
}

func (m *areaModel) Health(context.Context) error { return m.healthErr }

type testServer struct {
	router  *gin.Engine
	monitor *feature.MemoryFeatureMonitor
	model   *areaModel
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	income, err := feature.NewIncomeTable([]feature.IncomeRecord{
		{PostalCode: 90210, MedianIncome: 150000},
		{PostalCode: 10001, MedianIncome: 90000},
	})
	require.NoError(t, err)
	rules, err := dsl.CompileRules([]dsl.Rule{{Name: "large_lot", When: `listing.lot_area >= 43560.0`, Label: "acreage"}})
	require.NoError(t, err)

	m := &areaModel{}
	p, err := estimator.New(estimator.Resources{
		Model:   m,
		Regions: feature.NewRegionSet("CA", "NY", "TX"),
		Income:  income,
	}, estimator.WithRules(rules...))
	require.NoError(t, err)

	monitor := feature.NewMemoryFeatureMonitorWithInterval(100, time.Hour)
	t.Cleanup(monitor.Close)

	h := NewHandler(p, monitor, Options{MaxBatchSize: 3, BatchConcurrency: 2, Logger: logging.Discard()})
	return &testServer{
		router:  NewRouter(h, RouterConfig{Version: "test"}, logging.Discard()),
		monitor: monitor,
		model:   m,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func listing() map[string]any {
	return map[string]any{
		"state":      "CA",
		"zipcode":    90210,
		"homeType":   "SINGLE_FAMILY",
		"livingArea": 2000,
		"bedrooms":   3,
		"bathrooms":  2,
		"lotArea":    50000,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestPredict(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/predict", listing())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		RequestID     string  `json:"request_id"`
		Price         int64   `json:"price"`
		RawPrediction float64 `json:"raw_prediction"`
		BaselinePrice int64   `json:"baseline_price"`
		Labels        map[string]struct {
			Value string `json:"value"`
		} `json:"labels"`
		Encoding feature.EncodeInfo `json:"encoding"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get(HeaderRequestID))
	assert.Equal(t, int64(400000), resp.Price)
	assert.Equal(t, 400000.9, resp.RawPrediction)
	assert.Equal(t, int64(390000), resp.BaselinePrice)
	assert.Equal(t, "large_lot", resp.Labels["acreage"].Value)
	assert.Equal(t, 150000.0, resp.Encoding.MedianIncome)
	assert.False(t, resp.Encoding.IncomeFallback)
}

func TestPredict_KeepsClientRequestID(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(listing())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", bytes.NewReader(body))
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestPredict_InvalidInput(t *testing.T) {
	s := newTestServer(t)

	bad := listing()
	bad["bedrooms"] = "three"
	w := s.do(t, http.MethodPost, "/api/v1/predict", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, core.ErrorCodeInvalidInput, resp.Code)
	assert.Equal(t, "bedrooms", resp.Field)

	missing := listing()
	delete(missing, "state")
	w = s.do(t, http.MethodPost, "/api/v1/predict", missing)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/predict", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredict_ModelError(t *testing.T) {
	s := newTestServer(t)
	l := listing()
	l["livingArea"] = -1
	w := s.do(t, http.MethodPost, "/api/v1/predict", l)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	stats, err := s.monitor.GetFeatureStats(context.Background(), feature.MetricPrice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ErrorCount)
}

func TestPredict_UnknownCategories(t *testing.T) {
	s := newTestServer(t)
	l := listing()
	l["state"] = "ZZ"
	l["homeType"] = "CASTLE"
	l["zipcode"] = "99999"
	w := s.do(t, http.MethodPost, "/api/v1/predict", l)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Encoding feature.EncodeInfo `json:"encoding"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Encoding.UnknownRegion)
	assert.True(t, resp.Encoding.UnknownHomeType)
	assert.True(t, resp.Encoding.IncomeFallback)
	assert.Equal(t, 120000.0, resp.Encoding.MedianIncome)

	stats, err := s.monitor.GetFeatureStats(context.Background(), feature.KeyRegion)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MissingReasons[feature.ReasonUnknownRegion])
}

func TestPredictBatch(t *testing.T) {
	s := newTestServer(t)
	bad := listing()
	bad["lotArea"] = "n/a"
	ny := listing()
	ny["state"] = "NY"
	ny["zipcode"] = 10001
	ny["livingArea"] = 1000

	w := s.do(t, http.MethodPost, "/api/v1/predict/batch", BatchRequest{Listings: []map[string]any{listing(), bad, ny}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Results []struct {
			Index int   `json:"index"`
			Price int64 `json:"price"`
			Error *struct {
				Code  string `json:"code"`
				Field string `json:"field"`
			} `json:"error"`
		} `json:"results"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, int64(400000), resp.Results[0].Price)
	assert.Equal(t, 1, resp.Results[1].Index)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, "lotArea", resp.Results[1].Error.Field)
	assert.Equal(t, int64(200000), resp.Results[2].Price)
}

func TestPredictBatch_Limits(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/predict/batch", BatchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	many := []map[string]any{listing(), listing(), listing(), listing()}
	w = s.do(t, http.MethodPost, "/api/v1/predict/batch", BatchRequest{Listings: many})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchema(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/schema", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		FeatureColumns []string `json:"feature_columns"`
		FeatureCount   int      `json:"feature_count"`
		Regions        []string `json:"regions"`
		HomeTypes      []string `json:"home_types"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 12, resp.FeatureCount)
	assert.Equal(t, "bathrooms", resp.FeatureColumns[0])
	assert.Equal(t, "state_TX", resp.FeatureColumns[11])
	assert.Equal(t, []string{"CA", "NY", "TX"}, resp.Regions)
	assert.Len(t, resp.HomeTypes, 4)
}

func TestStats(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/predict", listing()).Code)

	w := s.do(t, http.MethodGet, "/api/v1/stats?refresh=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Features []feature.FeatureStats `json:"features"`
	}
	decode(t, w, &resp)
	names := make([]string, 0, len(resp.Features))
	for _, f := range resp.Features {
		names = append(names, f.FeatureName)
	}
	assert.Contains(t, names, feature.MetricPrice)
	assert.Contains(t, names, feature.ColumnLivingArea)

	w = s.do(t, http.MethodGet, "/api/v1/stats?feature=price", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var price feature.FeatureStats
	decode(t, w, &price)
	assert.Equal(t, int64(1), price.UsageCount)

	w = s.do(t, http.MethodGet, "/api/v1/stats?feature=nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.model.healthErr = errors.New("down")
	w = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
