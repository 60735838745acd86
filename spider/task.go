package spider

import (
	"time"

	"github.com/dszqbsm/fraudcrawler/limiter"
	"go.uber.org/zap"
)

// 配置文件中的一个[[Tasks]]，Name需与任务仓库中的规则名对应
type TaskConfig struct {
	Name     string        `toml:"Name"`
	Cookie   string        `toml:"Cookie"`
	WaitTime int64         `toml:"WaitTime"`
	Reload   bool          `toml:"Reload"`
	MaxDepth int           `toml:"MaxDepth"`
	Fetcher  string        `toml:"Fetcher"` // base、browser或jina
	Limits   []LimitConfig `toml:"Limits"`
}

// 每EventDur秒最多EventCount次请求
type LimitConfig struct {
	EventCount int `toml:"EventCount"`
	EventDur   int `toml:"EventDur"`
	Bucket     int `toml:"Bucket"`
}

// 一个爬虫任务，规则树在引擎启动时按名称绑定
type Task struct {
	Rule RuleTree
	Options
}

func NewTask(opts ...Option) *Task {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Task{Options: options}
}

func (t *Task) Logger() *zap.Logger {
	if t.logger == nil {
		return zap.NewNop()
	}
	return t.logger
}

type Options struct {
	Name     string        `json:"name"` // 全局唯一
	Cookie   string        `json:"cookie"`
	WaitTime int64         `json:"wait_time"` // 请求前随机休眠上限，秒
	Reload   bool          `json:"reload"`    // 抓取成功的页面是否可以再次抓取
	MaxDepth int           `json:"max_depth"` // 0表示只抓种子页
	Timeout  time.Duration `json:"-"`         // 为0时用采集器自身的超时
	Fetcher  Fetcher       `json:"-"`
	Storage  DataRepository
	Limit    limiter.RateLimiter
	logger   *zap.Logger
}

var defaultOptions = Options{
	logger:   zap.NewNop(),
	MaxDepth: 5,
}

type Option func(opts *Options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

func WithCookie(cookie string) Option {
	return func(opts *Options) {
		opts.Cookie = cookie
	}
}

func WithWaitTime(sec int64) Option {
	return func(opts *Options) {
		opts.WaitTime = sec
	}
}

func WithReload(reload bool) Option {
	return func(opts *Options) {
		opts.Reload = reload
	}
}

func WithFetcher(f Fetcher) Option {
	return func(opts *Options) {
		opts.Fetcher = f
	}
}

func WithStorage(s DataRepository) Option {
	return func(opts *Options) {
		opts.Storage = s
	}
}

func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

func WithTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = d
	}
}

func WithLimit(l limiter.RateLimiter) Option {
	return func(opts *Options) {
		opts.Limit = l
	}
}
