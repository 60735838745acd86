package workerengine

import (
	"context"

	"github.com/dszqbsm/fraudcrawler/spider"
	"go.uber.org/zap"
)

type Scheduler interface {
	/*
		输入上下文，无输出

		维护优先队列和普通队列，优先分发优先队列中的请求，ctx结束时返回
	*/
	Schedule(ctx context.Context)
	// 提交新请求，调度器已退出时直接丢弃
	Push(...*spider.Request)
	// 取一个请求，ctx结束时返回false
	Pull(ctx context.Context) (*spider.Request, bool)
}

// 调度器：接收新请求，按优先级分类后分发给工作协程
type Schedule struct {
	requestCh   chan *spider.Request
	workerCh    chan *spider.Request
	done        chan struct{}
	priReqQueue []*spider.Request // 优先队列
	reqQueue    []*spider.Request // 普通队列
	Logger      *zap.Logger
}

func NewSchedule() *Schedule {
	s := &Schedule{}
	s.requestCh = make(chan *spider.Request)
	s.workerCh = make(chan *spider.Request)
	s.done = make(chan struct{})
	s.Logger = zap.NewNop()

	return s
}

func (s *Schedule) Push(reqs ...*spider.Request) {
	for _, req := range reqs {
		select {
		case s.requestCh <- req:
		case <-s.done:
			return
		}
	}
}

func (s *Schedule) Pull(ctx context.Context) (*spider.Request, bool) {
	select {
	case r := <-s.workerCh:
		return r, true
	case <-ctx.Done():
		return nil, false
	}
}

// 队列中剩余的请求数，仅在Schedule返回后读取
func (s *Schedule) Len() int {
	return len(s.priReqQueue) + len(s.reqQueue)
}

func (s *Schedule) Schedule(ctx context.Context) {
	defer close(s.done)

	var ch chan *spider.Request
	var req *spider.Request

	for {
		if req == nil && len(s.priReqQueue) > 0 {
			req = s.priReqQueue[0]
			s.priReqQueue = s.priReqQueue[1:]
			ch = s.workerCh
		}

		if req == nil && len(s.reqQueue) > 0 {
			req = s.reqQueue[0]
			s.reqQueue = s.reqQueue[1:]
			ch = s.workerCh
		}

		select {
		case <-ctx.Done():
			if req != nil {
				s.reqQueue = append(s.reqQueue, req)
			}
			return
		case r := <-s.requestCh:
			if r.Priority > 0 {
				s.priReqQueue = append(s.priReqQueue, r)
			} else {
				s.reqQueue = append(s.reqQueue, r)
			}
		// ch为nil时该分支永远不会被选中，只等待新请求
		case ch <- req:
			req = nil
			ch = nil
		}
	}
}
