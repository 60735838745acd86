package workerengine

import (
	"github.com/dszqbsm/fraudcrawler/spider"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	id            string
	WorkCount     int            // 工作协程数
	Fetcher       spider.Fetcher // 任务没有自带采集器时使用
	Storage       spider.DataRepository
	Logger        *zap.Logger
	Seeds         []*spider.Task // 种子任务
	scheduler     Scheduler
	reqRepository spider.ReqHistoryRepository
}

var defaultOptions = options{
	Logger:    zap.NewNop(),
	WorkCount: 1,
}

func WithID(id string) Option {
	return func(opts *options) {
		opts.id = id
	}
}

func WithReqRepository(reqRepository spider.ReqHistoryRepository) Option {
	return func(opts *options) {
		opts.reqRepository = reqRepository
	}
}

func WithStorage(s spider.DataRepository) Option {
	return func(opts *options) {
		opts.Storage = s
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithFetcher(fetcher spider.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}

func WithSeeds(seed []*spider.Task) Option {
	return func(opts *options) {
		opts.Seeds = seed
	}
}

func WithScheduler(scheduler Scheduler) Option {
	return func(opts *options) {
		opts.scheduler = scheduler
	}
}
