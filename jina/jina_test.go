package jina

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch {
		case strings.HasSuffix(r.URL.Path, "/ok"):
			_, _ = w.Write([]byte("<html><title>詐騙手法</title><p>假投資</p></html>"))
		case strings.HasSuffix(r.URL.Path, "/json"):
			_, _ = w.Write([]byte(`{"code":200,"data":{"title":"JSON標題","content":"內容"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func newClient(t *testing.T, srv *httptest.Server, key string) *Client {
	t.Helper()
	c, err := New(
		WithAPIKey(key),
		WithDelay(0),
		WithBaseURLs(srv.URL+"/r/", srv.URL+"/s/", srv.URL+"/g/"),
		WithProgress(io.Discard),
	)
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestCrawlURL(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := newClient(t, srv, "key")

	ignoreTime := cmpopts.IgnoreFields(CrawlResult{}, "Timestamp", "Content")
	tests := []struct {
		name   string
		target string
		want   CrawlResult
	}{
		{
			name:   "html title",
			target: "https://165.npa.gov.tw/ok",
			want: CrawlResult{
				URL:     "https://165.npa.gov.tw/ok",
				JinaURL: srv.URL + "/r/https://165.npa.gov.tw/ok",
				Success: true,
				Title:   "詐騙手法",
			},
		},
		{
			name:   "json title",
			target: "https://165.npa.gov.tw/json",
			want: CrawlResult{
				URL:     "https://165.npa.gov.tw/json",
				JinaURL: srv.URL + "/r/https://165.npa.gov.tw/json",
				Success: true,
				Title:   "JSON標題",
			},
		},
		{
			name:   "status error",
			target: "https://165.npa.gov.tw/bad",
			want: CrawlResult{
				URL:     "https://165.npa.gov.tw/bad",
				JinaURL: srv.URL + "/r/https://165.npa.gov.tw/bad",
				Error:   "Jina API returned status code: 500",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.CrawlURL(context.Background(), tt.target)
			if diff := cmp.Diff(tt.want, got, ignoreTime); diff != "" {
				t.Errorf("CrawlURL() mismatch (-want +got):\n%s", diff)
			}
			assert.NotEmpty(t, got.Timestamp)
		})
	}
}

func TestCrawlURLTransportError(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, "key")
	srv.Close()

	got := c.CrawlURL(context.Background(), "https://165.npa.gov.tw/ok")
	assert.False(t, got.Success)
	assert.Empty(t, got.JinaURL)
	assert.NotEmpty(t, got.Error)
}

func TestCrawlURLs(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := newClient(t, srv, "key")

	report := c.CrawlURLs(context.Background(), []string{"a/ok", "b/bad", "c/json"})
	assert.Equal(t, 3, report.TotalURLs)
	assert.Equal(t, 2, report.SuccessfulCrawls)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "b/bad", report.Results[1].URL)
	assert.Equal(t, int64(3), c.Requests())
}

func TestGetImplementsFetcher(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	var f spider.Fetcher = newClient(t, srv, "key")

	req := &spider.Request{URL: "x/bad"}
	_, err := f.Get(context.Background(), req)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.Code)
	assert.Equal(t, srv.URL+"/r/x/bad", req.TmpData.GetString(spider.JinaURLKey))

	req = &spider.Request{URL: "x/ok"}
	body, err := f.Get(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, string(body), "假投資")
}

func TestSearchAndGround(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()
	c := newClient(t, srv, "key")

	_, err := c.Search(context.Background(), "假投資 詐騙")
	require.NoError(t, err)
	_, err = c.Ground(context.Background(), "165是反詐騙專線")
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.True(t, strings.HasPrefix(paths[0], "/s/"))
	assert.True(t, strings.HasPrefix(paths[1], "/g/"))
	assert.NotContains(t, paths[0], " ")
}

func TestUnauthorized(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := newClient(t, srv, "wrong")

	_, err := c.Read(context.Background(), "ok")
	assert.EqualError(t, err, "Jina API returned status code: 401")
}

func TestInsecureFallback(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<title>tls</title>"))
	}))
	defer srv.Close()

	strict, err := New(WithAPIKey("k"), WithDelay(0), WithBaseURLs(srv.URL+"/", "", ""))
	require.NoError(t, err)
	_, err = strict.Read(context.Background(), "x")
	assert.Error(t, err)

	loose, err := New(WithAPIKey("k"), WithDelay(0), WithBaseURLs(srv.URL+"/", "", ""), WithInsecureFallback(true))
	require.NoError(t, err)
	body, err := loose.Read(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "<title>tls</title>", string(body))
}

func TestResultFromCell(t *testing.T) {
	cell := &spider.DataCell{Data: map[string]interface{}{
		"Data": map[string]interface{}{
			"url": "u", "success": true, "title": "t", "content": "c", "timestamp": "ts", "category": "詐騙手法",
		},
	}}
	want := CrawlResult{URL: "u", Success: true, Title: "t", Content: "c", Timestamp: "ts", Category: "詐騙手法"}
	assert.Equal(t, want, ResultFromCell(cell))
}
