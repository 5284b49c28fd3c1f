package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rushteam/homeprice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKServeClient_V1(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string][][]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"predictions": [412345.9, [500000.0]]}`))
	}))
	defer srv.Close()

	svc, err := NewMLService(&ServiceConfig{
		Type:         ServiceTypeTFServing,
		Endpoint:     srv.URL + "/",
		ModelName:    "homeprice",
		ModelVersion: "3",
		Auth:         &AuthConfig{Type: "bearer", Token: "t"},
	})
	require.NoError(t, err)

	resp, err := svc.Predict(context.Background(), &core.MLPredictRequest{
		Instances: [][]float64{{1, 2}, {3, 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1/models/homeprice/versions/3:predict", gotPath)
	assert.Equal(t, "Bearer t", gotAuth)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, gotBody["instances"])
	assert.Equal(t, []float64{412345.9, 500000}, resp.Predictions)
	assert.Equal(t, "3", resp.ModelVersion)
}

func TestKServeClient_V2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/models/homeprice/ready":
			w.WriteHeader(http.StatusOK)
		case "/v2/models/homeprice/infer":
			var body struct {
				Inputs []struct {
					Name  string    `json:"name"`
					Shape []int     `json:"shape"`
					Data  []float64 `json:"data"`
				} `json:"inputs"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "features", body.Inputs[0].Name)
			assert.Equal(t, []int{1, 3}, body.Inputs[0].Shape)
			assert.Equal(t, []float64{1, 2, 3}, body.Inputs[0].Data)
			_, _ = w.Write([]byte(`{"outputs":[{"name":"other","data":[0]},{"name":"price","data":[300000.5]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc, err := NewMLService(&ServiceConfig{
		Type:         ServiceTypeKServeV2,
		Endpoint:     srv.URL,
		ModelName:    "homeprice",
		V2InputName:  "features",
		V2OutputName: "price",
	})
	require.NoError(t, err)

	require.NoError(t, TestConnection(context.Background(), svc))
	resp, err := svc.Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1, 2, 3}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{300000.5}, resp.Predictions)
}

func TestKServeClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models/short:predict" {
			_, _ = w.Write([]byte(`{"predictions": [1]}`))
			return
		}
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewKServeClient(srv.URL, "homeprice", WithKServeProtocol(KServeV1))

	_, err := c.Predict(ctx, &core.MLPredictRequest{})
	assert.Error(t, err)

	_, err = c.Predict(ctx, &core.MLPredictRequest{Instances: [][]float64{{1}, {1, 2}}})
	assert.ErrorContains(t, err, "instance 1")

	_, err = c.Predict(ctx, &core.MLPredictRequest{Instances: [][]float64{{1}}})
	assert.ErrorContains(t, err, "status=500")

	short := NewKServeClient(srv.URL, "short", WithKServeProtocol(KServeV1))
	_, err = short.Predict(ctx, &core.MLPredictRequest{Instances: [][]float64{{1}, {2}}})
	assert.ErrorContains(t, err, "count mismatch")

	assert.Error(t, c.Health(ctx))
}

func TestNewMLService_Invalid(t *testing.T) {
	_, err := NewMLService(nil)
	assert.True(t, core.IsInvalidInput(err))

	_, err = NewMLService(&ServiceConfig{Endpoint: "localhost:8500", ModelName: "m"})
	assert.True(t, core.IsInvalidInput(err))

	_, err = NewMLService(&ServiceConfig{Type: "torch_serve", Endpoint: "http://x", ModelName: "m"})
	assert.True(t, core.IsNotSupported(err))
}

func TestKServeClient_V2Versioned(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		if r.Method == http.MethodGet {
			return
		}
		_, _ = w.Write([]byte(`{"model_version":"7","outputs":[{"name":"out","data":[[1.5],[2.5]]}]}`))
	}))
	defer srv.Close()

	c := NewKServeClient(srv.URL, "homeprice",
		WithKServeVersion("7"),
		WithKServeAuth(&AuthConfig{Type: "api_key", APIKey: "secret"}),
		WithKServeTimeout(time.Second),
	)
	resp, err := c.Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1}, {2}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, resp.Predictions)
	assert.Equal(t, "7", resp.ModelVersion)
	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, []string{
		"POST /v2/models/homeprice/versions/7/infer",
		"GET /v2/models/homeprice/versions/7/ready",
	}, paths)
}
