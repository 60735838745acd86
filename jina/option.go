package jina

import (
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultReaderURL = "https://r.jina.ai/"
	DefaultSearchURL = "https://s.jina.ai/"
	DefaultGroundURL = "https://g.jina.ai/"
)

type Option func(opts *options)

type options struct {
	apiKey           string
	timeout          time.Duration
	delay            time.Duration // 两次请求的最小间隔
	readerURL        string
	searchURL        string
	groundURL        string
	httpClient       *http.Client
	insecureFallback bool // TLS校验失败时跳过校验再试一次
	progress         io.Writer
	logger           *zap.Logger
}

var defaultOptions = options{
	timeout:   30 * time.Second,
	delay:     2 * time.Second,
	readerURL: DefaultReaderURL,
	searchURL: DefaultSearchURL,
	groundURL: DefaultGroundURL,
	progress:  os.Stderr,
	logger:    zap.NewNop(),
}

func WithAPIKey(key string) Option {
	return func(opts *options) {
		opts.apiKey = key
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

// 三个地址都以/结尾，目标URL直接拼在后面
func WithBaseURLs(reader, search, ground string) Option {
	return func(opts *options) {
		if reader != "" {
			opts.readerURL = reader
		}
		if search != "" {
			opts.searchURL = search
		}
		if ground != "" {
			opts.groundURL = ground
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = c
	}
}

func WithInsecureFallback(on bool) Option {
	return func(opts *options) {
		opts.insecureFallback = on
	}
}

// 进度条输出位置，传io.Discard关闭
func WithProgress(w io.Writer) Option {
	return func(opts *options) {
		opts.progress = w
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
