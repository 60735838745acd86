package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/dszqbsm/fraudcrawler/processor"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantText  string
		wantTitle string
	}{
		{
			name:      "html",
			body:      `<html><head><title>警政新聞</title><style>p{}</style></head><body><h1>公告</h1><script>var x=1</script><p> 假投資詐騙 </p></body></html>`,
			wantText:  "公告\n假投資詐騙",
			wantTitle: "警政新聞",
		},
		{name: "markdown", body: "# 詐騙手法\n\n假冒客服", wantText: "# 詐騙手法\n\n假冒客服"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, title := ExtractText([]byte(tt.body))
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantTitle, title)
		})
	}
}

func TestParseSource(t *testing.T) {
	task := NewTask(Sources)
	roots, err := task.Rule.Root()
	require.NoError(t, err)
	require.Len(t, roots, len(Sources))

	req := roots[4]
	req.Task = task
	assert.Equal(t, "警方公告", req.Temp().GetString(spider.CategoryKey))

	res, err := ParseSource(&spider.Context{Body: []byte("<body><p>詐騙 詐欺 LINE: abc123</p></body>"), Req: req})
	require.NoError(t, err)
	cell := res.Items[0].(*spider.DataCell)
	assert.Equal(t, 4, cell.Data["Index"])

	page := cell.Page()
	assert.Equal(t, 200, page["status"])
	sd := page["structured_data"].(map[string]interface{})
	assert.Equal(t, "警方公告", sd["category"])
	patterns := sd["extracted_patterns"].(processor.Patterns)
	assert.Equal(t, []string{"abc123"}, patterns.LineIDs)
	assert.Equal(t, 1, patterns.FraudKeywords["詐欺"])
}

func TestFailureAndGroup(t *testing.T) {
	task := NewTask(Sources)
	roots, _ := task.Rule.Root()
	for _, r := range roots {
		r.Task = task
	}

	ok, _ := ParseSource(&spider.Context{Body: []byte("內容"), Req: roots[0]})
	failed := FailureRecord(roots[3], errors.New("timeout"))

	grouped := Group(Sources, []*spider.DataCell{
		ok.Items[0].(*spider.DataCell),
		failed.Items[0].(*spider.DataCell),
	})
	require.Len(t, grouped["最新詐騙手法"], 1)
	require.Len(t, grouped["防詐資訊"], 1)
	assert.Equal(t, "error", grouped["防詐資訊"][0]["status"])
	assert.Equal(t, "防詐資訊", grouped["防詐資訊"][0]["category"])
}

type errFetcher struct{}

func (errFetcher) Get(context.Context, *spider.Request) ([]byte, error) {
	return nil, errors.New("blocked")
}

type okFetcher struct{}

func (okFetcher) Get(context.Context, *spider.Request) ([]byte, error) {
	return []byte("jina"), nil
}

func TestFallbackFetch(t *testing.T) {
	f := &spider.FallbackFetch{Primary: errFetcher{}, Fallback: okFetcher{}}
	body, err := f.Get(context.Background(), &spider.Request{URL: "u"})
	require.NoError(t, err)
	assert.Equal(t, "jina", string(body))

	f.Fallback = nil
	_, err = f.Get(context.Background(), &spider.Request{URL: "u"})
	assert.EqualError(t, err, "blocked")
}
