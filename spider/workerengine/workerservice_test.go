package workerengine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	block bool
}

func (f *fakeFetcher) Get(ctx context.Context, req *spider.Request) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.URL]++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.fail[req.URL] {
		return nil, errors.New("boom")
	}
	return []byte("<html><title>" + req.URL + "</title></html>"), nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
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

func (m *memStore) urls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.cells {
		out = append(out, c.Page()["url"].(string))
	}
	sort.Strings(out)
	return out
}

func newTask(name string, urls []string, follow bool) *spider.Task {
	task := spider.NewTask(spider.WithName(name), spider.WithMaxDepth(2))
	task.Rule = spider.RuleTree{
		Root: func() ([]*spider.Request, error) {
			var reqs []*spider.Request
			for _, u := range urls {
				reqs = append(reqs, &spider.Request{URL: u, Method: "GET", RuleName: "page"})
			}
			return reqs, nil
		},
		Trunk: map[string]*spider.Rule{
			"page": {ParseFunc: func(ctx *spider.Context) (spider.ParseResult, error) {
				res := ctx.OutputPage()
				if follow && ctx.Req.Depth == 0 {
					res.Requests = append(res.Requests, &spider.Request{
						URL:      ctx.Req.URL + "/child",
						Method:   "GET",
						Depth:    ctx.Req.Depth + 1,
						RuleName: "page",
						Priority: 1,
					})
				}
				return res, nil
			}},
		},
		Failure: spider.FailurePage,
	}
	return task
}

func TestRunDrainsFrontier(t *testing.T) {
	tests := []struct {
		name   string
		urls   []string
		follow bool
		want   []string
	}{
		{name: "seeds only", urls: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "duplicates visited once", urls: []string{"a", "a"}, want: []string{"a"}},
		{name: "children", urls: []string{"a", "b"}, follow: true, want: []string{"a", "a/child", "b", "b/child"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			s, err := NewWorkerService(
				WithWorkCount(3),
				WithFetcher(&fakeFetcher{}),
				WithStorage(store),
				WithSeeds([]*spider.Task{newTask("t", tt.urls, tt.follow)}),
			)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			require.NoError(t, s.Run(ctx))
			assert.Equal(t, tt.want, store.urls())
		})
	}
}

func TestRunRetriesOnceThenFails(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{fail: map[string]bool{"bad": true}}
	s, err := NewWorkerService(
		WithFetcher(f),
		WithStorage(store),
		WithSeeds([]*spider.Task{newTask("t", []string{"good", "bad"}, false)}),
	)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 2, f.count("bad"))
	assert.Equal(t, 1, f.count("good"))
	assert.Equal(t, []string{"bad", "good"}, store.urls())

	for _, c := range store.cells {
		page := c.Page()
		if page["url"] == "bad" {
			assert.Equal(t, false, page["success"])
			assert.Equal(t, "boom", page["error"])
		}
	}
	assert.Equal(t, int64(1), s.Stats().Failed)
}

func TestRunMaxDepthDropped(t *testing.T) {
	store := &memStore{}
	task := newTask("t", nil, false)
	task.MaxDepth = 0
	task.Rule.Root = func() ([]*spider.Request, error) {
		return []*spider.Request{{URL: "deep", Method: "GET", Depth: 1, RuleName: "page"}}, nil
	}
	s, err := NewWorkerService(WithFetcher(&fakeFetcher{}), WithStorage(store), WithSeeds([]*spider.Task{task}))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, store.urls())
	assert.Equal(t, int64(1), s.Stats().Dropped)
}

func TestRunCancelled(t *testing.T) {
	s, err := NewWorkerService(
		WithWorkCount(2),
		WithFetcher(&fakeFetcher{block: true}),
		WithStorage(&memStore{}),
		WithSeeds([]*spider.Task{newTask("t", []string{"a", "b", "c"}, false)}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
}

func TestRunNoSeeds(t *testing.T) {
	s, err := NewWorkerService()
	require.NoError(t, err)
	assert.NoError(t, s.Run(context.Background()))
}

func TestRunRecoversPanic(t *testing.T) {
	store := &memStore{}
	task := newTask("t", []string{"p"}, false)
	task.Rule.Trunk["page"].ParseFunc = func(*spider.Context) (spider.ParseResult, error) {
		panic("parse exploded")
	}
	s, err := NewWorkerService(WithFetcher(&fakeFetcher{}), WithStorage(store), WithSeeds([]*spider.Task{task}))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, store.cells, 1)
	assert.Equal(t, "panic: parse exploded", store.cells[0].Page()["error"])
}

func TestScheduleFavoursPriority(t *testing.T) {
	s := NewSchedule()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Schedule(ctx)
	}()

	s.Push(&spider.Request{URL: "low"}, &spider.Request{URL: "high", Priority: 1})
	// 第一个请求在推入high之前可能已被取出等待分发
	first, ok := s.Pull(ctx)
	require.True(t, ok)
	second, ok := s.Pull(ctx)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"low", "high"}, []string{first.URL, second.URL})

	cancel()
	<-done
	s.Push(&spider.Request{URL: "late"})
	_, ok = s.Pull(ctx)
	assert.False(t, ok)
}
