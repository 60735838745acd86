package pipeline

import (
	"io"
	"os"
	"time"

	"github.com/dszqbsm/fraudcrawler/jina"
	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/dszqbsm/fraudcrawler/spider"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	jina     *jina.Client
	llm      *llm.Client
	storage  spider.DataRepository // 额外的存储，如MySQL
	progress io.Writer
	logger   *zap.Logger
	now      func() time.Time
}

var defaultOptions = options{
	progress: os.Stderr,
	logger:   zap.NewNop(),
	now:      time.Now,
}

func WithJina(c *jina.Client) Option {
	return func(opts *options) {
		opts.jina = c
	}
}

func WithLLM(c *llm.Client) Option {
	return func(opts *options) {
		opts.llm = c
	}
}

func WithStorage(s spider.DataRepository) Option {
	return func(opts *options) {
		opts.storage = s
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
