package workerengine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dszqbsm/fraudcrawler/spider"
	"go.uber.org/zap"
)

type WorkerService interface {
	Run(ctx context.Context) error
}

type workerService struct {
	out     chan spider.ParseResult
	pending int64 // 已提交但尚未处理完的请求数
	cancel  context.CancelFunc
	stats   Stats
	options
}

// 一次运行的统计
type Stats struct {
	Fetched int64 // 成功抓取的请求数
	Failed  int64 // 重试后仍失败的请求数
	Items   int64 // 输出的数据单元数
	Dropped int64 // 超过深度或重复的请求数
}

/*
输入多个配置选项，输出一个workerService实例和错误

种子任务没有采集器或存储器时使用服务级的默认值
*/
func NewWorkerService(opts ...Option) (*workerService, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkCount <= 0 {
		options.WorkCount = 1
	}
	if options.scheduler == nil {
		options.scheduler = NewSchedule()
	}
	if options.reqRepository == nil {
		options.reqRepository = spider.NewReqHistoryRepository()
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	e := &workerService{}
	e.out = make(chan spider.ParseResult)
	e.options = options

	for _, task := range e.Seeds {
		if task.Fetcher == nil {
			task.Fetcher = e.Fetcher
		}
		if task.Storage == nil {
			task.Storage = e.Storage
		}
	}

	return e, nil
}

/*
输入上下文，输出错误

启动调度器、工作协程和结果处理协程，所有请求处理完毕后返回nil；ctx先结束时返回ctx的错误
*/
func (c *workerService) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	c.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.scheduler.Schedule(ctx)
	}()

	handled := make(chan struct{})
	go func() {
		defer close(handled)
		c.HandleResult()
	}()

	var workers sync.WaitGroup
	for i := 0; i < c.WorkCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			c.CreateWork(ctx)
		}()
	}

	if n := c.handleSeeds(); n == 0 {
		c.Logger.Warn("no seed requests")
		cancel()
	}

	workers.Wait()
	close(c.out)
	<-handled
	wg.Wait()

	c.Logger.Info("crawl finished",
		zap.String("id", c.id),
		zap.Int64("fetched", atomic.LoadInt64(&c.stats.Fetched)),
		zap.Int64("failed", atomic.LoadInt64(&c.stats.Failed)),
		zap.Int64("items", atomic.LoadInt64(&c.stats.Items)))

	return parent.Err()
}

func (c *workerService) Stats() Stats {
	return Stats{
		Fetched: atomic.LoadInt64(&c.stats.Fetched),
		Failed:  atomic.LoadInt64(&c.stats.Failed),
		Items:   atomic.LoadInt64(&c.stats.Items),
		Dropped: atomic.LoadInt64(&c.stats.Dropped),
	}
}

/*
无输入，输出推入调度器的种子请求数

任务没有自带规则时，从任务仓库中按名称查找预设任务并绑定其规则
*/
func (c *workerService) handleSeeds() int {
	var reqs []*spider.Request
	for _, task := range c.Seeds {
		if task.Rule.Root == nil {
			t, ok := spider.TaskStore.Get(task.Name)
			if !ok {
				c.Logger.Error("can not find preset tasks", zap.String("task name", task.Name))
				continue
			}
			task.Rule = t.Rule
		}

		rootreqs, err := task.Rule.Root()
		if err != nil {
			c.Logger.Error("get root failed",
				zap.String("task", task.Name),
				zap.Error(err),
			)
			continue
		}

		for _, req := range rootreqs {
			req.Task = task
		}
		reqs = append(reqs, rootreqs...)
	}

	c.push(reqs...)
	return len(reqs)
}

// 计数后再提交，保证处理中的请求不会让pending提前归零
func (c *workerService) push(reqs ...*spider.Request) {
	if len(reqs) == 0 {
		return
	}
	atomic.AddInt64(&c.pending, int64(len(reqs)))
	c.scheduler.Push(reqs...)
}

func (c *workerService) finish() {
	if atomic.AddInt64(&c.pending, -1) == 0 {
		c.cancel()
	}
}

// 工作协程：不断从调度器取请求处理，直到ctx结束
func (c *workerService) CreateWork(ctx context.Context) {
	for {
		req, ok := c.scheduler.Pull(ctx)
		if !ok {
			return
		}
		c.handle(ctx, req)
		c.finish()
	}
}

/*
输入上下文和一个请求，无输出

校验深度并去重，抓取后交给规则解析，新请求推回调度器，解析结果送入结果通道；单个请求的panic只影响这一个请求
*/
func (c *workerService) handle(ctx context.Context, req *spider.Request) {
	defer func() {
		if err := recover(); err != nil {
			c.Logger.Error("worker panic",
				zap.Any("err", err),
				zap.String("url", req.URL),
				zap.String("stack", string(debug.Stack())))
			c.SetFailure(ctx, req, fmt.Errorf("panic: %v", err))
		}
	}()

	if err := req.Check(); err != nil {
		c.Logger.Debug("check failed",
			zap.Error(err),
			zap.String("url", req.URL),
		)
		atomic.AddInt64(&c.stats.Dropped, 1)
		return
	}

	if !req.Task.Reload && c.reqRepository.HasVisited(req) {
		c.Logger.Debug("request has visited",
			zap.String("url", req.URL),
		)
		atomic.AddInt64(&c.stats.Dropped, 1)
		return
	}

	c.reqRepository.AddVisited(req)

	body, err := req.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.Logger.Error("can't fetch",
			zap.Error(err),
			zap.String("url", req.URL),
		)
		c.SetFailure(ctx, req, err)
		return
	}
	atomic.AddInt64(&c.stats.Fetched, 1)

	rule, ok := req.Task.Rule.Trunk[req.RuleName]
	if !ok {
		c.Logger.Error("rule not found",
			zap.String("task", req.Task.Name),
			zap.String("rule", req.RuleName))
		return
	}

	result, err := rule.ParseFunc(&spider.Context{
		Body: body,
		Req:  req,
	})
	if err != nil {
		c.Logger.Error("ParseFunc failed",
			zap.Error(err),
			zap.String("url", req.URL),
		)
		c.SetFailure(ctx, req, err)
		return
	}

	for _, r := range result.Requests {
		if r.Task == nil {
			r.Task = req.Task
		}
	}
	c.push(result.Requests...)
	c.emit(ctx, result)
}

func (c *workerService) emit(ctx context.Context, result spider.ParseResult) {
	if len(result.Items) == 0 {
		return
	}
	select {
	case c.out <- result:
	case <-ctx.Done():
	}
}

// 处理解析结果，DataCell交给所属任务的存储器
func (c *workerService) HandleResult() {
	for result := range c.out {
		for _, item := range result.Items {
			switch d := item.(type) {
			case *spider.DataCell:
				atomic.AddInt64(&c.stats.Items, 1)
				storage := c.Storage
				if d.Task != nil && d.Task.Storage != nil {
					storage = d.Task.Storage
				}
				if storage == nil {
					c.Logger.Warn("no storage for item", zap.String("task", d.GetTaskName()))
					continue
				}
				if err := storage.Save(d); err != nil {
					c.Logger.Error("save failed",
						zap.String("task", d.GetTaskName()),
						zap.Error(err))
				}
			default:
				c.Logger.Debug("get result", zap.Any("item", item))
			}
		}
	}
}

/*
输入上下文、失败的请求和原因，无输出

首次失败重新推入调度器，第二次失败交给规则树的Failure钩子输出失败记录
*/
func (c *workerService) SetFailure(ctx context.Context, req *spider.Request, cause error) {
	if c.reqRepository.AddFailures(req) {
		c.push(req)
		return
	}

	atomic.AddInt64(&c.stats.Failed, 1)
	if req.Task.Rule.Failure == nil {
		return
	}
	c.emit(ctx, req.Task.Rule.Failure(req, cause))
}
