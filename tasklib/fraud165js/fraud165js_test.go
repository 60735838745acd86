package fraud165js

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/spider/workerengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listURL = "https://165.npa.gov.tw/#/articles/C"

func loadTask(t *testing.T) *spider.Task {
	t.Helper()
	store := spider.NewTaskStore()
	store.AddJSTask(Fraud165JSTask)
	task, ok := store.Get(TaskName)
	require.True(t, ok)
	return task
}

type siteFetcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *siteFetcher) Get(ctx context.Context, req *spider.Request) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.URL]++
	f.mu.Unlock()

	if req.URL == listURL {
		return []byte(`[新](https://165.npa.gov.tw/#/article/C/1700)
[舊](https://165.npa.gov.tw/#/article/C/1641)
[新](https://165.npa.gov.tw/#/article/C/1700)`), nil
	}
	return []byte("<html><head><title>" + req.URL + "</title></head></html>"), nil
}

type memStore struct {
	mu    sync.Mutex
	cells []*spider.DataCell
}

func (m *memStore) Save(cells ...*spider.DataCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells = append(m.cells, cells...)
	return nil
}

func TestRules(t *testing.T) {
	task := loadTask(t)
	assert.Equal(t, TaskName, task.Name)
	assert.Equal(t, 2, task.MaxDepth)
	assert.NotNil(t, task.Rule.Failure)
	require.Len(t, task.Rule.Trunk, 2)
	assert.Nil(t, task.Rule.Trunk["文章列表"].ItemFields)
	assert.Equal(t, spider.PageFields, task.Rule.Trunk["文章"].ItemFields)
}

func TestRoot(t *testing.T) {
	roots, err := loadTask(t).Rule.Root()
	require.NoError(t, err)
	require.Len(t, roots, 13)

	assert.Equal(t, listURL, roots[0].URL)
	assert.Equal(t, "文章列表", roots[0].RuleName)
	assert.Equal(t, 1, roots[0].Priority)
	for _, r := range roots[1:] {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "文章", r.RuleName)
		assert.Equal(t, 0, r.Priority)
		assert.True(t, strings.HasPrefix(r.URL, "https://165.npa.gov.tw/#/article/C/"), r.URL)
	}
}

func TestArticleRule(t *testing.T) {
	task := loadTask(t)
	req := &spider.Request{Task: task, URL: "https://165.npa.gov.tw/#/article/C/1641", Method: "GET", RuleName: "文章"}

	res, err := task.Rule.Trunk["文章"].ParseFunc(&spider.Context{
		Body: []byte("<html><head><title>假投資</title></head></html>"),
		Req:  req,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	page := res.Items[0].(*spider.DataCell).Page()
	assert.Equal(t, req.URL, page["url"])
	assert.Equal(t, "假投資", page["title"])
	assert.Equal(t, true, page["success"])
}

func TestListRuleDepth(t *testing.T) {
	task := loadTask(t)
	req := &spider.Request{Task: task, URL: listURL, Method: "GET", RuleName: "文章列表", Depth: 1}

	res, err := task.Rule.Trunk["文章列表"].ParseFunc(&spider.Context{
		Body: []byte("https://165.npa.gov.tw/#/article/C/1800"),
		Req:  req,
	})
	require.NoError(t, err)
	require.Len(t, res.Requests, 1)
	assert.Equal(t, 2, res.Requests[0].Depth)
	assert.Empty(t, res.Items)
}

// 列表页中重复或已在种子里的文章只抓一次
func TestRunDeduplicatesArticles(t *testing.T) {
	task := loadTask(t)
	task.WaitTime = 0

	store := &memStore{}
	f := &siteFetcher{}
	s, err := workerengine.NewWorkerService(
		workerengine.WithWorkCount(1),
		workerengine.WithFetcher(f),
		workerengine.WithStorage(store),
		workerengine.WithSeeds([]*spider.Task{task}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	var urls []string
	for _, c := range store.cells {
		urls = append(urls, c.Page()["url"].(string))
	}
	sort.Strings(urls)
	require.Len(t, urls, 13)
	assert.Contains(t, urls, "https://165.npa.gov.tw/#/article/C/1700")
	assert.Equal(t, 1, f.calls["https://165.npa.gov.tw/#/article/C/1700"])
	assert.Equal(t, 1, f.calls["https://165.npa.gov.tw/#/article/C/1641"])
	assert.Equal(t, 1, f.calls[listURL])
}
