package llm

import (
	"net/http"
	"time"

	"github.com/dszqbsm/fraudcrawler/trace"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	delay      time.Duration // 两次调用的最小间隔
	retries    int           // 失败后的重试次数
	backoff    time.Duration // 重试前固定等待
	httpClient *http.Client
	tracer     *trace.Ledger
	logger     *zap.Logger
}

var defaultOptions = options{
	model:   "gpt-4o",
	timeout: 60 * time.Second,
	delay:   time.Second,
	retries: 2,
	backoff: 2 * time.Second,
	logger:  zap.NewNop(),
}

func WithAPIKey(key string) Option {
	return func(opts *options) {
		opts.apiKey = key
	}
}

// 为空时使用官方地址
func WithBaseURL(u string) Option {
	return func(opts *options) {
		opts.baseURL = u
	}
}

func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

func WithTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.timeout = d
	}
}

func WithDelay(d time.Duration) Option {
	return func(opts *options) {
		opts.delay = d
	}
}

func WithRetries(n int, backoff time.Duration) Option {
	return func(opts *options) {
		opts.retries = n
		opts.backoff = backoff
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = c
	}
}

func WithTracer(l *trace.Ledger) Option {
	return func(opts *options) {
		opts.tracer = l
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
