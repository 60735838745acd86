package dataset

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	progress io.Writer
	logger   *zap.Logger
	now      func() time.Time
}

var defaultOptions = options{
	progress: os.Stderr,
	logger:   zap.NewNop(),
	now:      time.Now,
}

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

// 文件名中的时间戳取自该时钟
func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		opts.now = now
	}
}
