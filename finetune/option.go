package finetune

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Option func(opts *options)

type options struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var defaultOptions = options{
	baseURL:    DefaultBaseURL,
	httpClient: &http.Client{Timeout: 5 * time.Minute},
	logger:     zap.NewNop(),
}

func WithAPIKey(key string) Option {
	return func(opts *options) {
		opts.apiKey = key
	}
}

// 为空时使用官方地址，不以/结尾
func WithBaseURL(u string) Option {
	return func(opts *options) {
		if u != "" {
			opts.baseURL = u
		}
	}
}

// c为nil时保留默认客户端
func WithHTTPClient(c *http.Client) Option {
	return func(opts *options) {
		if c != nil {
			opts.httpClient = c
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
