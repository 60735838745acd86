package log

import (
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Plugin = zapcore.Core

/*
输入一个日志核心和可选的zap选项，输出一个zap日志实例

先应用DefaultOption()中的调用者和堆栈选项，再追加调用方传入的选项
*/
func NewLogger(plugin zapcore.Core, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(DefaultOption(), options...)...)
}

// 以默认JSON编码器创建一个日志核心
func NewPlugin(writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(DefaultEncoder(), writer, enabler)
}

// 绑定到标准输出的日志核心
func NewStdoutPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stdout)), enabler)
}

// 绑定到标准错误的日志核心，命令行子命令的结果写到标准输出时使用
func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// lumberjack没有暴露Sync，所以额外返回closer，进程退出前必须Close才能把缓冲刷到磁盘
/*
输入日志文件路径和日志级别过滤器，输出一个日志核心和对应的closer

使用预置的轮转配置写入文件
*/
func NewFilePlugin(filePath string, enabler zapcore.LevelEnabler) (Plugin, io.Closer) {
	var writer = DefaultLumberjackLogger()
	writer.Filename = filePath
	return NewPlugin(zapcore.AddSync(writer), enabler), writer
}

type closers []io.Closer

func (c closers) Close() error {
	var err error
	for _, cl := range c {
		err = multierr.Append(err, cl.Close())
	}
	return err
}

/*
输入日志级别字符串和可选的日志文件路径，输出日志实例、closer和错误

级别字符串按zapcore.ParseLevel解析；文件路径非空时同时写标准错误和轮转文件
*/
func Setup(level string, filePath string) (*zap.Logger, io.Closer, error) {
	if level == "" {
		level = "INFO"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	plugins := []zapcore.Core{NewStderrPlugin(lvl)}
	var cs closers
	if filePath != "" {
		p, c := NewFilePlugin(filePath, lvl)
		plugins = append(plugins, p)
		cs = append(cs, c)
	}

	return NewLogger(zapcore.NewTee(plugins...)), cs, nil
}
