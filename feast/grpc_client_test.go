package feast

import (
	"context"
	"testing"

	"github.com/feast-dev/feast/sdk/go/protos/feast/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGrpcClient_GetOnlineFeatures 需要真实的 Feast Serving
func TestGrpcClient_GetOnlineFeatures(t *testing.T) {
	t.Skip("需要连接真实的 Feast 服务器才能运行")

	client, err := NewGrpcClient("localhost", 6565, "homeprice")
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{
		Features:   []string{"zip_income:median_income"},
		EntityRows: []map[string]interface{}{{"zip_code": int64(90210)}, {"zip_code": int64(10001)}},
	})
	require.NoError(t, err)
	assert.Len(t, resp.FeatureVectors, 2)
}

func TestToSDKValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"string", "test"},
		{"int", 100},
		{"int64", int64(100)},
		{"float64", 3.14},
		{"bool", true},
		{"[]byte", []byte("test")},
		{"other", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, toSDKValue(tt.input))
		})
	}
}

func TestFromSDKValue(t *testing.T) {
	assert.Nil(t, fromSDKValue(nil))
	assert.Nil(t, fromSDKValue(&types.Value{}))
	assert.Equal(t, 120000.5, fromSDKValue(&types.Value{Val: &types.Value_DoubleVal{DoubleVal: 120000.5}}))
	assert.Equal(t, float64(90210), fromSDKValue(&types.Value{Val: &types.Value_Int64Val{Int64Val: 90210}}))
	assert.Equal(t, float64(7), fromSDKValue(&types.Value{Val: &types.Value_Int32Val{Int32Val: 7}}))
	assert.Equal(t, float64(1), fromSDKValue(&types.Value{Val: &types.Value_BoolVal{BoolVal: true}}))
	assert.Equal(t, "x", fromSDKValue(&types.Value{Val: &types.Value_StringVal{StringVal: "x"}}))
}

func TestParseEndpoint(t *testing.T) {
	host, port := parseEndpoint("grpc://feast.internal:6566")
	assert.Equal(t, "feast.internal", host)
	assert.Equal(t, 6566, port)

	host, port = parseEndpoint("localhost")
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 0, port)
}
