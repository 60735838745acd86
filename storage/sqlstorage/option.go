package sqlstorage

import (
	"github.com/dszqbsm/fraudcrawler/sqldb"
	"go.uber.org/zap"
)

type options struct {
	logger     *zap.Logger
	sqlURL     string
	BatchCount int        // 每张表攒够多少条写一次
	db         sqldb.DBer // 测试时注入
}

var defaultOptions = options{
	logger:     zap.NewNop(),
	BatchCount: 10,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithSQLURL(sqlURL string) Option {
	return func(opts *options) {
		opts.sqlURL = sqlURL
	}
}

func WithBatchCount(batchCount int) Option {
	return func(opts *options) {
		opts.BatchCount = batchCount
	}
}

func WithDB(db sqldb.DBer) Option {
	return func(opts *options) {
		opts.db = db
	}
}
