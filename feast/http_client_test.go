package feast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_GetOnlineFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-online-features", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body struct {
			Features         []string                 `json:"features"`
			Entities         map[string][]interface{} `json:"entities"`
			FullFeatureNames bool                     `json:"full_feature_names"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"zip_income:median_income"}, body.Features)
		assert.Equal(t, []interface{}{90210.0, 10001.0, 99999.0}, body.Entities["zip_code"])
		assert.True(t, body.FullFeatureNames)

		_, _ = w.Write([]byte(`{
			"metadata": {"feature_names": ["zip_code", "zip_income__median_income"]},
			"results": [
				{"values": [90210, 10001, 99999], "statuses": ["PRESENT", "PRESENT", "PRESENT"]},
				{"values": [150000.0, 96000.0, null], "statuses": ["PRESENT", "PRESENT", "NOT_FOUND"]}
			]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/", "homeprice", WithAuth(&AuthConfig{Type: "static", Token: "tok"}))
	require.NoError(t, err)
	defer client.Close()
	_, ok := client.(*HTTPClient)
	require.True(t, ok)

	resp, err := client.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{
		Features: []string{"zip_income:median_income"},
		EntityRows: []map[string]interface{}{
			{"zip_code": int64(90210)}, {"zip_code": int64(10001)}, {"zip_code": int64(99999)},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.FeatureVectors, 3)
	assert.Equal(t, 150000.0, resp.FeatureVectors[0].Values["zip_income:median_income"])
	assert.Equal(t, 96000.0, resp.FeatureVectors[1].Values["zip_income:median_income"])
	assert.NotContains(t, resp.FeatureVectors[2].Values, "zip_income:median_income")
	assert.Equal(t, int64(99999), resp.FeatureVectors[2].EntityRow["zip_code"])
}

func TestHTTPClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "homeprice")
	require.NoError(t, err)

	_, err = client.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{})
	assert.Error(t, err, "features are required")

	_, err = client.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{
		Features:   []string{"zip_income:median_income"},
		EntityRows: []map[string]interface{}{{"zip_code": 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")

	_, err = client.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{
		Features:   []string{"zip_income:median_income"},
		EntityRows: []map[string]interface{}{{"zip_code": 1}, {"zip": 2}},
	})
	assert.Error(t, err, "entity rows must share keys")
}
