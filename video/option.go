package video

import (
	"io"
	"os"
	"time"

	"github.com/dszqbsm/fraudcrawler/trace"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	interval     int // 截图间隔，秒
	maxDuration  int // 0表示处理整个视频
	output       string
	maxWorkers   int
	force        bool
	skipAnalysis bool
	frameDelay   time.Duration // 两帧分析之间的停顿
	tracer       *trace.Ledger
	progress     io.Writer
	logger       *zap.Logger
	now          func() time.Time
}

var defaultOptions = options{
	interval:   10,
	output:     "video_analysis",
	maxWorkers: 3,
	frameDelay: 500 * time.Millisecond,
	progress:   os.Stderr,
	logger:     zap.NewNop(),
	now:        time.Now,
}

func WithInterval(sec int) Option {
	return func(opts *options) {
		if sec > 0 {
			opts.interval = sec
		}
	}
}

func WithMaxDuration(sec int) Option {
	return func(opts *options) {
		opts.maxDuration = sec
	}
}

func WithOutput(dir string) Option {
	return func(opts *options) {
		if dir != "" {
			opts.output = dir
		}
	}
}

func WithMaxWorkers(n int) Option {
	return func(opts *options) {
		if n > 0 {
			opts.maxWorkers = n
		}
	}
}

// 已处理过的视频也重新处理
func WithForce(force bool) Option {
	return func(opts *options) {
		opts.force = force
	}
}

// 只截图不分析
func WithSkipAnalysis(skip bool) Option {
	return func(opts *options) {
		opts.skipAnalysis = skip
	}
}

func WithFrameDelay(d time.Duration) Option {
	return func(opts *options) {
		opts.frameDelay = d
	}
}

func WithTracer(l *trace.Ledger) Option {
	return func(opts *options) {
		opts.tracer = l
	}
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

func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		opts.now = now
	}
}
