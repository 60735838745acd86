package fraud165

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/spider/workerengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (f *pageFetcher) Get(ctx context.Context, req *spider.Request) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.URL]++
	f.mu.Unlock()

	if f.fail[req.URL] {
		return nil, errors.New("404 Not Found")
	}
	return []byte("<html><head><title>" + req.URL + "</title></head><body>詐騙</body></html>"), nil
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

func (m *memStore) sorted() []*spider.DataCell {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*spider.DataCell(nil), m.cells...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Data["Index"].(int) < out[j].Data["Index"].(int)
	})
	return out
}

func TestNewTask(t *testing.T) {
	task := NewTask([]string{"https://a", "https://b"})
	assert.Equal(t, TaskName, task.Name)
	assert.Equal(t, 0, task.MaxDepth)
	assert.NotNil(t, task.Rule.Failure)

	rule, ok := task.Rule.Trunk[RuleName]
	require.True(t, ok)
	assert.Equal(t, ItemFields, rule.ItemFields)
}

func TestNewTaskCopiesSeeds(t *testing.T) {
	urls := []string{"https://a"}
	task := NewTask(urls)
	urls[0] = "https://changed"

	roots, err := task.Rule.Root()
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "https://a", roots[0].URL)
}

func TestDefaultTask(t *testing.T) {
	roots, err := Fraud165Task.Rule.Root()
	require.NoError(t, err)
	require.Len(t, roots, len(config.DefaultBaseURLs))
	for i, r := range roots {
		assert.Equal(t, config.DefaultBaseURLs[i], r.URL)
	}
}

func TestRootDuplicateURLs(t *testing.T) {
	urls := []string{"https://a", "https://b", "https://a"}
	roots, err := NewTask(urls).Rule.Root()
	require.NoError(t, err)
	require.Len(t, roots, 3)

	seen := map[string]bool{}
	for i, r := range roots {
		assert.Equal(t, urls[i], r.URL)
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, RuleName, r.RuleName)
		assert.Equal(t, 0, r.Depth)
		assert.Equal(t, i, r.Index())
		seen[r.Unique()] = true
	}
	assert.Len(t, seen, 3)
}

func TestParsePage(t *testing.T) {
	task := NewTask(nil)
	req := &spider.Request{Task: task, URL: "https://a", Method: "GET", RuleName: RuleName}
	require.NoError(t, req.Temp().Set(spider.IndexKey, 4))

	res, err := ParsePage(&spider.Context{
		Body: []byte("<html><head><title>防詐</title></head><body>內容</body></html>"),
		Req:  req,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Requests)
	require.Len(t, res.Items, 1)

	cell := res.Items[0].(*spider.DataCell)
	assert.Equal(t, 4, cell.Data["Index"])
	assert.Equal(t, TaskName, cell.GetTaskName())
	page := cell.Page()
	assert.Equal(t, "https://a", page["url"])
	assert.Equal(t, true, page["success"])
	assert.Equal(t, "防詐", page["title"])
}

func TestRunKeepsEveryInput(t *testing.T) {
	urls := []string{"https://a", "https://missing", "https://a"}
	store := &memStore{}
	f := &pageFetcher{fail: map[string]bool{"https://missing": true}}
	s, err := workerengine.NewWorkerService(
		workerengine.WithWorkCount(2),
		workerengine.WithFetcher(f),
		workerengine.WithStorage(store),
		workerengine.WithSeeds([]*spider.Task{NewTask(urls)}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	cells := store.sorted()
	require.Len(t, cells, 3)
	for i, c := range cells {
		assert.Equal(t, i, c.Data["Index"])
		assert.Equal(t, urls[i], c.Page()["url"])
	}
	assert.Equal(t, true, cells[0].Page()["success"])
	assert.Equal(t, false, cells[1].Page()["success"])
	assert.Equal(t, "404 Not Found", cells[1].Page()["error"])
	assert.Equal(t, true, cells[2].Page()["success"])
	assert.Equal(t, 2, f.calls["https://a"])
}
