package blob

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3 is a tiny fake S3 subset (HEAD and PUT) served through a RoundTripper.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string]mockObject // "bucket/key"
	headErr int                   // status returned for HEAD of missing keys
}

type mockObject struct {
	body        []byte
	contentType string
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string]mockObject), headErr: http.StatusNotFound}
}

func (m *mockS3) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.TrimPrefix(req.URL.Path, "/")
	switch req.Method {
	case http.MethodHead:
		obj, ok := m.objects[key]
		if !ok {
			return response(m.headErr, nil, nil), nil
		}
		return response(http.StatusOK, nil, http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
		}), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeAWSChunked(body)
		}
		m.objects[key] = mockObject{body: body, contentType: req.Header.Get("Content-Type")}
		return response(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	}
	return response(http.StatusNotImplemented, nil, nil), nil
}

func (m *mockS3) object(key string) (mockObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func response(code int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

// decodeAWSChunked strips aws-chunked framing: "<hex size>[;ext]\r\n<data>\r\n" until a zero chunk.
func decodeAWSChunked(b []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(b))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return b
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return b
		}
		if n == 0 {
			return out.Bytes()
		}
		if _, err := io.CopyN(&out, r, n); err != nil {
			return b
		}
		if _, err := r.ReadString('\n'); err != nil {
			return b
		}
	}
}

func newMockSink(t *testing.T, mock *mockS3, prefix string) *S3Sink {
	t.Helper()
	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket:          "reports",
		Region:          "us-east-1",
		Prefix:          prefix,
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: mock},
	})
	require.NoError(t, err)
	return sink
}

func TestS3Sink_Put(t *testing.T) {
	mock := newMockS3()
	sink := newMockSink(t, mock, "")
	ctx := context.Background()

	loc, err := sink.Put(ctx, "reports/r1.md", []byte("# report"), "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/reports/r1.md", loc)

	obj, ok := mock.object("reports/reports/r1.md")
	require.True(t, ok)
	assert.Equal(t, "# report", string(obj.body))
	assert.Equal(t, "text/markdown", obj.contentType)
}

func TestS3Sink_Prefix(t *testing.T) {
	mock := newMockS3()
	sink := newMockSink(t, mock, "gacha")

	loc, err := sink.Put(context.Background(), "r1.csv", []byte("a,b"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/gacha/r1.csv", loc)

	_, ok := mock.object("reports/gacha/r1.csv")
	assert.True(t, ok)
}

func TestS3Sink_CreateOnly(t *testing.T) {
	mock := newMockS3()
	sink := newMockSink(t, mock, "")
	ctx := context.Background()

	_, err := sink.Put(ctx, "r1.md", []byte("first"), "")
	require.NoError(t, err)

	_, err = sink.Put(ctx, "r1.md", []byte("second"), "")
	assert.True(t, errors.Is(err, ErrExists), "got %v", err)

	obj, _ := mock.object("reports/r1.md")
	assert.Equal(t, "first", string(obj.body))
}

func TestS3Sink_HeadFailure(t *testing.T) {
	mock := newMockS3()
	mock.headErr = http.StatusForbidden
	sink := newMockSink(t, mock, "")

	_, err := sink.Put(context.Background(), "r1.md", []byte("x"), "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExists))

	_, ok := mock.object("reports/r1.md")
	assert.False(t, ok)
}

func TestS3Sink_InvalidKey(t *testing.T) {
	sink := newMockSink(t, newMockS3(), "")
	_, err := sink.Put(context.Background(), "/abs.md", []byte("x"), "")
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)
}
