package chat

import (
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	model       string // 为空时用客户端默认模型
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

var defaultOptions = options{
	temperature: 0.7,
	maxTokens:   800,
	logger:      zap.NewNop(),
}

func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

func WithTemperature(t float32) Option {
	return func(opts *options) {
		opts.temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(opts *options) {
		opts.maxTokens = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
