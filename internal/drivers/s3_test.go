package drivers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/FairForge/s3connector/internal/engine"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeS3 answers path-style PutObject and GetObject requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	denyPut bool
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		if f.denyPut {
			writeS3Error(w, http.StatusForbidden, "AccessDenied", "Access Denied")
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		f.types[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if strings.HasPrefix(path, "missing-bucket/") {
			writeS3Error(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
			return
		}
		data, ok := f.objects[path]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		}
		w.Header().Set("Content-Type", f.types[path])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<Error><Code>`+code+`</Code><Message>`+message+`</Message><RequestId>req-1</RequestId></Error>`)
}

func newTestS3Driver(t *testing.T, endpoint string) *S3Driver {
	t.Helper()
	d, err := NewS3Driver(context.Background(), S3Options{
		Endpoint:     endpoint,
		AccessKey:    "AKIDEXAMPLE",
		SecretKey:    "secret",
		Region:       "us-east-1",
		UsePathStyle: true,
	}, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestS3Driver_PutGet(t *testing.T) {
	fake, srv := newFakeS3(t)
	d := newTestS3Driver(t, srv.URL)
	ctx := context.Background()
	data := []byte("\x89PNG fake image bytes")

	err := d.Put(ctx, "test-bucket", "uploads/a.png", bytes.NewReader(data),
		engine.WithContentType("image/png"), engine.WithSize(int64(len(data))))
	require.NoError(t, err)
	assert.Equal(t, data, fake.objects["test-bucket/uploads/a.png"])
	assert.Equal(t, "image/png", fake.types["test-bucket/uploads/a.png"])

	rc, err := d.Get(ctx, "test-bucket", "uploads/a.png")
	require.NoError(t, err)
	defer mustClose(rc)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestS3Driver_GetMissing(t *testing.T) {
	_, srv := newFakeS3(t)
	d := newTestS3Driver(t, srv.URL)

	_, err := d.Get(context.Background(), "test-bucket", "nope.png")

	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrObjectNotFound)
	var nsk *types.NoSuchKey
	assert.ErrorAs(t, err, &nsk)
}

func TestS3Driver_GetMissingBucketIsNotNotFound(t *testing.T) {
	_, srv := newFakeS3(t)
	d := newTestS3Driver(t, srv.URL)

	_, err := d.Get(context.Background(), "missing-bucket", "a.png")

	require.Error(t, err)
	assert.NotErrorIs(t, err, engine.ErrObjectNotFound)
}

func TestS3Driver_PutDenied(t *testing.T) {
	fake, srv := newFakeS3(t)
	fake.denyPut = true
	d := newTestS3Driver(t, srv.URL)

	err := d.Put(context.Background(), "test-bucket", "a.png", bytes.NewReader([]byte("x")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestS3Driver_Name(t *testing.T) {
	d := newTestS3Driver(t, "http://127.0.0.1:1")
	assert.Equal(t, "s3", d.Name())
	assert.Equal(t, "us-east-1", d.region)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchBucket"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("connection refused")))
}
