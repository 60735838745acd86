// Package setup 加载配置、初始化日志，并按配置创建各子命令共用的组件
package setup

import (
	"context"
	"io"
	"os"

	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/dszqbsm/fraudcrawler/log"
	"github.com/dszqbsm/fraudcrawler/pipeline"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/storage/sqlstorage"
	"github.com/dszqbsm/fraudcrawler/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Env struct {
	Config *config.Config
	Logger *zap.Logger

	closers []io.Closer
}

/*
无输入，输出运行环境和错误

从config.File加载配置，按logLevel和logFile初始化日志并替换zap全局日志
*/
func Init() (*Env, error) {
	cfg, err := config.Load(config.File)
	if err != nil {
		return nil, err
	}
	logger, closer, err := log.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	logger.Debug("log init end", zap.String("config", config.File))

	env := &Env{Config: cfg, Logger: logger}
	if closer != nil {
		env.closers = append(env.closers, closer)
	}
	return env, nil
}

// 按注册的逆序关闭
func (e *Env) Close() error {
	var err error
	for i := len(e.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, e.closers[i].Close())
	}
	_ = e.Logger.Sync()
	return err
}

/*
无输入，输出额外的存储和错误

配置了sqlURL时返回MySQL存储并在Close时写入剩余缓存，否则返回nil
*/
func (e *Env) Storage() (spider.DataRepository, error) {
	if e.Config.Storage.SQLURL == "" {
		return nil, nil
	}
	s, err := sqlstorage.New(
		sqlstorage.WithSQLURL(e.Config.Storage.SQLURL),
		sqlstorage.WithLogger(e.Logger.Named("sqlDB")),
		sqlstorage.WithBatchCount(e.Config.Storage.BatchCount),
	)
	if err != nil {
		e.Logger.Error("create sqlstorage failed", zap.Error(err))
		return nil, err
	}
	e.closers = append(e.closers, s)
	return s, nil
}

// 带上MySQL存储（如果配置了）的流水线
func (e *Env) Pipeline() (*pipeline.Pipeline, error) {
	s, err := e.Storage()
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{pipeline.WithLogger(e.Logger), pipeline.WithProgress(os.Stderr)}
	if s != nil {
		opts = append(opts, pipeline.WithStorage(s))
	}
	return pipeline.New(e.Config, opts...)
}

// path为空时不追踪，返回nil
func (e *Env) Tracer(path string) (*trace.Ledger, error) {
	if path == "" {
		return nil, nil
	}
	l, err := trace.Open(path, e.Logger.Named("trace"))
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, l)
	return l, nil
}

type envKey struct{}

func WithEnv(ctx context.Context, e *Env) context.Context {
	return context.WithValue(ctx, envKey{}, e)
}

// 由根命令的PersistentPreRunE放入
func FromContext(ctx context.Context) *Env {
	e, _ := ctx.Value(envKey{}).(*Env)
	return e
}

// 没有OpenAI密钥时返回nil，调用方按需报错
func (e *Env) LLM(tracer *trace.Ledger) (*llm.Client, error) {
	if e.Config.OpenAIAPIKey == "" {
		return nil, nil
	}
	return pipeline.NewLLM(e.Config, tracer, e.Logger)
}
