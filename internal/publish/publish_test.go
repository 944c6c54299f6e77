package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/config"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		t      time.Time
		ext    string
		want   string
	}{
		{"mid year", "instareview-reports", time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), "pdf", "instareview-reports/ACME/2025-03-W10.pdf"},
		{"dot ext", "instareview-reports/", time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), ".xlsx", "instareview-reports/ACME/2025-03-W10.xlsx"},
		// calendar year and month, ISO week
		{"year boundary", "instareview-reports", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "pdf", "instareview-reports/ACME/2024-12-W1.pdf"},
		{"no prefix", "", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), "html", "ACME/2025-01-W2.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.prefix, "ACME", tt.t, tt.ext))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType(".pdf"))
	assert.Equal(t, "text/html; charset=utf-8", ContentType("html"))
	assert.Equal(t, "application/octet-stream", ContentType("bin"))
}

func TestNewS3PublisherRequiresBucket(t *testing.T) {
	_, err := NewS3Publisher(context.Background(), config.PublishConfig{})
	assert.ErrorContains(t, err, "bucket")
}

func TestS3PublisherUpload(t *testing.T) {
	var (
		mu          sync.Mutex
		gotMethod   string
		gotPath     string
		gotBody     []byte
		gotCType    string
		gotAuthored bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotMethod, gotPath = r.Method, r.URL.Path
		gotCType = r.Header.Get("Content-Type")
		gotAuthored = r.Header.Get("Authorization") != ""
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewS3Publisher(context.Background(), config.PublishConfig{
		Bucket:          "reports",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	loc, err := p.Upload(context.Background(), "instareview-reports/ACME/2025-03-W10.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/instareview-reports/ACME/2025-03-W10.pdf", loc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/reports/instareview-reports/ACME/2025-03-W10.pdf", gotPath)
	assert.Equal(t, "application/pdf", gotCType)
	assert.Contains(t, string(gotBody), "%PDF-1.4")
	assert.True(t, gotAuthored)
}

func TestS3PublisherPresign(t *testing.T) {
	p, err := NewS3Publisher(context.Background(), config.PublishConfig{
		Bucket:          "reports",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	link, err := p.Presign(context.Background(), "instareview-reports/ACME/2025-03-W10.pdf", 0)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/reports/instareview-reports/ACME/2025-03-W10.pdf", u.Path)
	q := u.Query()
	assert.Equal(t, "604800", q.Get("X-Amz-Expires"))
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))

	link, err = p.Presign(context.Background(), "k.pdf", time.Hour)
	require.NoError(t, err)
	u, _ = url.Parse(link)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}
