package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/dszqbsm/fraudcrawler/limiter"
	"github.com/dszqbsm/fraudcrawler/proxy"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/storage"
	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
	_ "github.com/dszqbsm/fraudcrawler/tasklib"
	"github.com/dszqbsm/fraudcrawler/tasklib/sources"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 按名称创建的采集器，rod浏览器需要在结束时关闭
type Fetchers struct {
	Base    spider.Fetcher
	Browser spider.Fetcher
	Rod     *spider.RodFetch
	Jina    spider.Fetcher
}

/*
输入配置、Jina采集器和日志，输出各类采集器和错误

配置了代理时直连采集器轮流使用代理
*/
func NewFetchers(cfg *config.Config, jc spider.Fetcher, logger *zap.Logger) (*Fetchers, error) {
	var p proxy.ProxyFunc
	if len(cfg.Fetcher.Proxy) > 0 {
		var err error
		if p, err = proxy.RoundRobinProxySwitcher(cfg.Fetcher.Proxy...); err != nil {
			return nil, fmt.Errorf("proxy: %w", err)
		}
	}
	timeout := cfg.Fetcher.TimeoutDuration()
	return &Fetchers{
		Base:    spider.NewFetchService(spider.BaseFetchType, timeout, p, logger),
		Browser: spider.NewFetchService(spider.BrowserFetchType, timeout, p, logger),
		Rod:     spider.NewFetchService(spider.RodFetchType, timeout, p, logger).(*spider.RodFetch),
		Jina:    jc,
	}, nil
}

// 名称为空或未知时返回nil，由引擎使用默认采集器
func (f *Fetchers) Get(name string) spider.Fetcher {
	switch name {
	case "base":
		return f.Base
	case "browser":
		return f.Browser
	case "rod":
		return f.Rod
	case "jina":
		if f.Jina != nil {
			return f.Jina
		}
	}
	return nil
}

func (f *Fetchers) Close() error {
	return f.Rod.Close()
}

/*
输入日志、采集器、存储和任务配置，输出任务列表

每个配置生成一个只带名称和属性的任务，规则在引擎启动时按名称从任务仓库绑定
*/
func ParseTaskConfig(logger *zap.Logger, f *Fetchers, s spider.DataRepository, cfgs []spider.TaskConfig) []*spider.Task {
	tasks := make([]*spider.Task, 0, len(cfgs))
	for _, cfg := range cfgs {
		t := spider.NewTask(
			spider.WithName(cfg.Name),
			spider.WithReload(cfg.Reload),
			spider.WithCookie(cfg.Cookie),
			spider.WithLogger(logger),
			spider.WithStorage(s),
		)

		if cfg.WaitTime > 0 {
			t.WaitTime = cfg.WaitTime
		}

		if cfg.MaxDepth > 0 {
			t.MaxDepth = cfg.MaxDepth
		}

		if len(cfg.Limits) > 0 {
			var limits []limiter.RateLimiter
			for _, lcfg := range cfg.Limits {
				bucket := lcfg.Bucket
				if bucket <= 0 {
					bucket = 1
				}
				l := rate.NewLimiter(limiter.Per(lcfg.EventCount, time.Duration(lcfg.EventDur)*time.Second), bucket)
				limits = append(limits, l)
			}
			t.Limit = limiter.Multi(limits...)
		}

		if f != nil {
			if fetcher := f.Get(cfg.Fetcher); fetcher != nil {
				t.Fetcher = fetcher
			}
		}
		tasks = append(tasks, t)
	}
	return tasks
}

/*
输入上下文，输出抓取到的数据单元和错误

执行配置文件中的[[Tasks]]，默认使用直连采集器
*/
func (p *Pipeline) CrawlTasks(ctx context.Context) ([]*spider.DataCell, error) {
	id := p.NextID()
	logger := p.logger.With(zap.String("run_id", id))

	var jc spider.Fetcher
	if p.jina != nil {
		jc = p.jina
	}
	f, err := NewFetchers(p.cfg, jc, logger.Named("fetcher"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	collector := storage.NewCollector()
	sinks := storage.Multi{collector}
	if p.cfg.Pipeline.SavePerURL {
		fs, err := filestorage.New(p.cfg.Pipeline.CrawlDir, logger.Named("filestorage"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if p.storage != nil {
		sinks = append(sinks, p.storage)
	}

	tasks := ParseTaskConfig(logger, f, sinks, p.cfg.Tasks)
	for _, t := range tasks {
		if t.Fetcher == nil {
			t.Fetcher = f.Browser
		}
	}
	if err := p.runEngine(ctx, id, logger, tasks...); err != nil {
		return nil, err
	}
	return collector.Cells(), nil
}

/*
输入上下文，输出保存的文件路径、分组后的记录和错误

直连抓取各分类来源，失败时改用Jina；结果按分组保存为fraud_data_{时间戳}.json
*/
func (p *Pipeline) CrawlSources(ctx context.Context) (string, map[string][]map[string]interface{}, error) {
	id := p.NextID()
	logger := p.logger.With(zap.String("run_id", id))

	var fallback spider.Fetcher
	if p.jina != nil {
		fallback = p.jina
	}
	f, err := NewFetchers(p.cfg, fallback, logger.Named("fetcher"))
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	collector := storage.NewCollector()
	progress := newProgressSink(len(sources.Sources), "Crawling sources", p.progress)
	sinks := storage.Multi{collector, progress}
	if p.storage != nil {
		sinks = append(sinks, p.storage)
	}

	task := sources.NewTask(sources.Sources,
		spider.WithFetcher(&spider.FallbackFetch{Primary: f.Browser, Fallback: fallback, Logger: logger}),
		spider.WithStorage(sinks),
		spider.WithLogger(logger),
	)
	err = p.runEngine(ctx, id, logger, task)
	_ = progress.bar.Finish()
	if err != nil {
		return "", nil, err
	}

	grouped := sources.Group(sources.Sources, collector.Cells())
	path := filepath.Join(p.cfg.Pipeline.CrawlDir, fmt.Sprintf("fraud_data_%s.json", p.stamp()))
	if err := filestorage.WriteJSON(path, grouped); err != nil {
		return "", nil, err
	}
	logger.Info("saved source crawl", zap.String("path", path), zap.Int("records", collector.Len()))
	return path, grouped, nil
}
