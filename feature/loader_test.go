package feature

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"CA":"California","NY":"New York"}`), 0o644))

	data, err := ReadAll(context.Background(), NewFileSource(), path)
	require.NoError(t, err)

	regions, err := LoadRegionSet(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"CA", "NY"}, regions.Codes())
	meta, ok := regions.Meta("NY")
	require.True(t, ok)
	assert.JSONEq(t, `"New York"`, string(meta))
	_, ok = regions.Meta("ZZ")
	assert.False(t, ok)

	_, err = NewFileSource().Open(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/states.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"TX":{"name":"Texas"}}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(0)
	data, err := ReadAll(context.Background(), src, srv.URL+"/states.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"TX":{"name":"Texas"}}`, string(data))

	_, err = src.Open(context.Background(), srv.URL+"/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	body, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestSourceFor(t *testing.T) {
	s3 := &fakeS3{objects: map[string]string{"assets/homeprice/income.csv": "zip_code,median_income\n1,2\n"}}

	src, loc, err := SourceFor("s3://assets/homeprice/income.csv", s3)
	require.NoError(t, err)
	assert.IsType(t, &S3Source{}, src)
	assert.Equal(t, "homeprice/income.csv", loc)

	tbl, err := (&CSVIncomeLoader{Source: src, Location: loc}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, tbl.Mean())

	src, loc, err = SourceFor("https://cdn.example.com/states.json", nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)
	assert.Equal(t, "https://cdn.example.com/states.json", loc)

	src, loc, err = SourceFor("file:///etc/homeprice/states.json", nil)
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)
	assert.Equal(t, "/etc/homeprice/states.json", loc)

	_, _, err = SourceFor("s3://bucket-only", s3)
	assert.Error(t, err)
	_, _, err = SourceFor("s3://b/k", nil)
	assert.Error(t, err)
}

func TestLoadRegionSet_Errors(t *testing.T) {
	_, err := LoadRegionSet(strings.NewReader(`["CA"]`))
	assert.Error(t, err)
	_, err = LoadRegionSet(strings.NewReader(`{}`))
	assert.Error(t, err)
}
