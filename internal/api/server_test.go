package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FairForge/s3connector/internal/config"
	"github.com/FairForge/s3connector/internal/drivers"
	"github.com/FairForge/s3connector/internal/engine"
	"github.com/FairForge/s3connector/internal/host"
	"github.com/FairForge/s3connector/internal/nodes"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, src nodes.EngineSource) *httptest.Server {
	t.Helper()
	if src == nil {
		eng, err := engine.New(drivers.NewLocalDriver(t.TempDir(), zap.NewNop()),
			engine.Options{Bucket: "test-bucket", KeyPrefix: "uploads"}, zap.NewNop())
		require.NoError(t, err)
		src = nodes.Static(eng)
	}
	reg := host.NewRegistry()
	require.NoError(t, nodes.Register(reg, src))

	s := NewServer(config.Default().Server, reg, zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func execute(t *testing.T, ts *httptest.Server, class string, body any) (int, map[string]json.RawMessage) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/nodes/"+class+"/execute", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func kindOf(t *testing.T, body map[string]json.RawMessage) string {
	t.Helper()
	var kind string
	require.NoError(t, json.Unmarshal(body["kind"], &kind))
	return kind
}

// rgba is a 1x2 image whose second pixel is half transparent.
var rgba = Tensor{
	Shape: []int{1, 1, 2, 4},
	Data:  []float32{1, 0, 0, 1, 0, 1, 0, 0.2},
}

func TestServer_HealthAndVersion(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, Version, health["version"])
	assert.EqualValues(t, 7, health["nodes"])

	resp2, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestServer_ObjectInfo(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/object_info")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var info map[string]host.Definition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Len(t, info, 7)

	save := info["S3SaveImage"]
	assert.Equal(t, "S3 Connector", save.Category)
	assert.True(t, save.OutputNode)
	assert.Equal(t, host.TypeImage, save.Required[0].Type)
	assert.True(t, info["GetJobID"].AlwaysExecute)
}

func TestServer_UploadAndLoad(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := execute(t, ts, "S3UploadImageFullPath", map[string]any{
		"inputs": map[string]any{"images": rgba, "full_path": "tests/pixel"},
	})
	require.Equal(t, http.StatusOK, status, string(body["error"]))

	var up []string
	require.NoError(t, json.Unmarshal(body["outputs"], &up))
	assert.Equal(t, []string{
		"https://test-bucket.s3.amazonaws.com/uploads/tests/pixel.png",
		"uploads/tests/pixel.png",
	}, up)

	status, body = execute(t, ts, "S3LoadImage", map[string]any{
		"inputs": map[string]any{"folder_path": "tests", "file_name": "pixel.png"},
	})
	require.Equal(t, http.StatusOK, status, string(body["error"]))

	var outs []Tensor
	require.NoError(t, json.Unmarshal(body["outputs"], &outs))
	require.Len(t, outs, 2)
	assert.Equal(t, []int{1, 1, 2, 3}, outs[0].Shape)
	assert.Equal(t, []float32{1, 0, 0, 0, 1, 0}, outs[0].Data)
	assert.Equal(t, []int{1, 1, 2}, outs[1].Shape)
	assert.InDelta(t, 0, outs[1].Data[0], 1e-6)
	assert.InDelta(t, 0.8, outs[1].Data[1], 1.0/255)
}

func TestServer_ExecuteErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		class  string
		body   any
		status int
		kind   string
	}{
		{"unknown node", "Nope", map[string]any{}, http.StatusNotFound, KindUnknownNode},
		{"unknown input", "S3LoadImage", map[string]any{"inputs": map[string]any{"bogus": "x"}}, http.StatusBadRequest, KindInvalidInput},
		{"wrong input type", "S3LoadImage", map[string]any{"inputs": map[string]any{"file_name": 3}}, http.StatusBadRequest, KindInvalidInput},
		{"missing image", "S3UploadImage", map[string]any{"inputs": map[string]any{"file_name": "a"}}, http.StatusBadRequest, KindInvalidInput},
		{"bad shape", "S3UploadImage", map[string]any{"inputs": map[string]any{
			"file_name": "a", "images": Tensor{Shape: []int{1, 2, 2, 3}, Data: []float32{0}},
		}}, http.StatusBadRequest, KindInvalidInput},
		{"empty file name", "S3LoadImage", map[string]any{"inputs": map[string]any{"file_name": " "}}, http.StatusBadRequest, KindInvalidInput},
		{"missing object", "S3LoadImageFullPath", map[string]any{"inputs": map[string]any{"full_path": "gone.png"}}, http.StatusNotFound, KindNotFound},
		{"no job context", "GetJobID", map[string]any{}, http.StatusUnprocessableEntity, KindContextUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := execute(t, ts, tt.class, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, kindOf(t, body))
			assert.NotContains(t, body, "outputs")
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/nodes/S3LoadImage/execute", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_ConfigurationError(t *testing.T) {
	ts := newTestServer(t, func(context.Context) (*engine.Engine, error) {
		return nil, engine.ErrMissingConfig(config.EnvBucket)
	})

	status, body := execute(t, ts, "S3LoadImage", map[string]any{
		"inputs": map[string]any{"file_name": "a.png"},
	})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, KindConfiguration, kindOf(t, body))
}

func TestServer_JobIDAndIsChanged(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := execute(t, ts, "GetJobID", map[string]any{
		"context": host.ExecutionContext{PromptID: "p-9", ExtraData: map[string]any{"batch_id": "b-1"}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["b-1"]`, string(body["outputs"]))

	token := func(class string) (int, string) {
		resp, err := http.Get(ts.URL + "/nodes/" + class + "/is_changed")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var out map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out["token"]
	}

	code, t1 := token("GetJobID")
	assert.Equal(t, http.StatusOK, code)
	_, t2 := token("GetJobID")
	assert.NotEqual(t, t1, t2)

	_, cached := token("S3LoadImage")
	assert.Empty(t, cached)

	code, _ = token("Nope")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_MetricsCountsExecutions(t *testing.T) {
	ts := newTestServer(t, nil)
	execute(t, ts, "GetJobID", map[string]any{"context": host.ExecutionContext{PromptID: "p"}})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `s3connector_node_executions_total{class="GetJobID",outcome="success"} 1`)
	assert.Contains(t, buf.String(), `route="/nodes/{class}/execute"`)
}

func TestServer_GzipBodies(t *testing.T) {
	ts := newTestServer(t, nil)

	raw, err := json.Marshal(map[string]any{
		"inputs": map[string]any{"images": rgba, "full_path": "zipped/pixel"},
	})
	require.NoError(t, err)
	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/nodes/S3UploadImageFullPath/execute", &zipped)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, ts.URL+"/nodes/S3UploadImageFullPath/execute", strings.NewReader("not gzip"))
	require.NoError(t, err)
	req.Header.Set("Content-Encoding", "gzip")
	bad, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = bad.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	// setting Accept-Encoding by hand stops the client from decompressing
	req, err = http.NewRequest(http.MethodGet, ts.URL+"/object_info", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	info, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = info.Body.Close() }()
	require.Equal(t, "gzip", info.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(info.Body)
	require.NoError(t, err)
	var defs map[string]host.Definition
	require.NoError(t, json.NewDecoder(zr).Decode(&defs))
	assert.Len(t, defs, 7)
}

func TestServer_SchemaRejectsMalformedTensors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name  string
		class string
		body  any
		msg   string
	}{
		{"shape as string", "S3UploadImage", map[string]any{"inputs": map[string]any{
			"file_name": "a", "images": map[string]any{"shape": "1x1x1x3", "data": []float32{0, 0, 0}},
		}}, "shape"},
		{"image without data", "S3UploadImage", map[string]any{"inputs": map[string]any{
			"file_name": "a", "images": map[string]any{"shape": []int{1, 1, 1, 3}},
		}}, "data"},
		{"zero dimension", "S3SaveImage", map[string]any{"inputs": map[string]any{
			"images": map[string]any{"shape": []int{1, 0, 1, 3}, "data": []float32{}},
		}}, "shape"},
		{"mask with two dims too many", "S3UploadImage", map[string]any{"inputs": map[string]any{
			"file_name": "a", "images": rgba, "mask": map[string]any{"shape": []int{1, 1, 1, 1, 1}, "data": []float32{0}},
		}}, "mask"},
		{"context not an object", "GetJobID", map[string]any{"context": "p-1"}, "context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := execute(t, ts, tt.class, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, KindInvalidInput, kindOf(t, body))
			assert.Contains(t, string(body["error"]), tt.msg)
		})
	}
}

func TestServer_UnmatchedRoutesAreCounted(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/no/such/path")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
	var notFound ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&notFound))
	assert.Equal(t, KindRouteNotFound, notFound.Kind)

	resp2, err := http.Get(ts.URL + "/nodes/S3LoadImage/execute")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
	var notAllowed ErrorResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&notAllowed))
	assert.Equal(t, KindMethodNotAllowed, notAllowed.Kind)

	metrics, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = metrics.Body.Close() }()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(metrics.Body)
	assert.Contains(t, buf.String(), `route="unmatched",status="404"`)
	assert.Contains(t, buf.String(), `route="unmatched",status="405"`)
	assert.NotContains(t, buf.String(), "/no/such/path")
}

func TestClassify(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&engine.UploadError{Bucket: "b", Key: "k", Err: cause}, http.StatusBadGateway, KindUpload},
		{&engine.DownloadError{Bucket: "b", Key: "k", Err: cause}, http.StatusBadGateway, KindDownload},
		{&engine.EncodingError{Err: cause}, http.StatusUnprocessableEntity, KindEncoding},
		{&engine.DecodingError{Key: "k", Err: cause}, http.StatusUnprocessableEntity, KindDecoding},
		{engine.ErrNotFound("b", "k", cause), http.StatusNotFound, KindNotFound},
		{engine.ErrMissingConfig("S3_BUCKET_NAME"), http.StatusInternalServerError, KindConfiguration},
		{fmt.Errorf("wrapped: %w", host.ErrContextUnavailable), http.StatusUnprocessableEntity, KindContextUnavailable},
		{cause, http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			status, kind := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
