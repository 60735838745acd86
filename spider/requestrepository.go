package spider

import "sync"

// 请求的访问记录和失败记录
type ReqHistoryRepository interface {
	AddVisited(reqs ...*Request)
	DeleteVisited(req *Request)
	// 首次失败返回true，调用方据此重试一次
	AddFailures(req *Request) bool
	DeleteFailures(req *Request)
	HasVisited(req *Request) bool
	Failures() int
}

type reqHistory struct {
	visited     map[string]bool
	visitedLock sync.Mutex

	failures    map[string]*Request // Unique() -> 失败请求
	failureLock sync.Mutex
}

func NewReqHistoryRepository() ReqHistoryRepository {
	r := &reqHistory{}
	r.visited = make(map[string]bool, 100)
	r.failures = make(map[string]*Request, 100)
	return r
}

func (r *reqHistory) HasVisited(req *Request) bool {
	r.visitedLock.Lock()
	defer r.visitedLock.Unlock()

	return r.visited[req.Unique()]
}

func (r *reqHistory) AddVisited(reqs ...*Request) {
	r.visitedLock.Lock()
	defer r.visitedLock.Unlock()

	for _, req := range reqs {
		r.visited[req.Unique()] = true
	}
}

func (r *reqHistory) DeleteVisited(req *Request) {
	r.visitedLock.Lock()
	defer r.visitedLock.Unlock()

	delete(r.visited, req.Unique())
}

/*
输入一个失败的请求，输出是否为首次失败

不允许重复爬取的任务会先把请求移出已访问列表，这样重试时不会被去重拦下
*/
func (r *reqHistory) AddFailures(req *Request) bool {
	if !req.Task.Reload {
		r.DeleteVisited(req)
	}

	r.failureLock.Lock()
	defer r.failureLock.Unlock()

	if _, ok := r.failures[req.Unique()]; ok {
		return false
	}
	r.failures[req.Unique()] = req
	return true
}

func (r *reqHistory) DeleteFailures(req *Request) {
	r.failureLock.Lock()
	defer r.failureLock.Unlock()

	delete(r.failures, req.Unique())
}

func (r *reqHistory) Failures() int {
	r.failureLock.Lock()
	defer r.failureLock.Unlock()

	return len(r.failures)
}
