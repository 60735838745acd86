package pipeline

// 抓取、整理、生成训练数据三个阶段串联执行，每个阶段的结果各存一个文件

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/dszqbsm/fraudcrawler/dataset"
	"github.com/dszqbsm/fraudcrawler/generator"
	"github.com/dszqbsm/fraudcrawler/jina"
	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/dszqbsm/fraudcrawler/processor"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/spider/workerengine"
	"github.com/dszqbsm/fraudcrawler/storage"
	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
	"github.com/dszqbsm/fraudcrawler/tasklib/fraud165"
	"github.com/dszqbsm/fraudcrawler/trace"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type Pipeline struct {
	cfg       *config.Config
	node      *snowflake.Node
	processor *processor.Processor
	generator *dataset.Generator
	options
}

/*
输入配置和配置项，输出流水线实例和错误

没有Jina密钥时抓取阶段不可用，没有OpenAI密钥时整理阶段只做内容解析
*/
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.jina == nil {
		c, err := NewJina(cfg, options.logger, options.progress)
		if err != nil && !errors.Is(err, jina.ErrNoAPIKey) {
			return nil, err
		}
		options.jina = c
	}
	if options.llm == nil && cfg.OpenAIAPIKey != "" {
		c, err := NewLLM(cfg, nil, options.logger)
		if err != nil {
			return nil, err
		}
		options.llm = c
	}

	node, err := generator.NewNode(generator.LocalIP())
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:  cfg,
		node: node,
		processor: processor.New(
			processor.WithClient(options.llm),
			processor.WithMaxContentChars(cfg.OpenAI.MaxContentChars),
			processor.WithTemperature(cfg.OpenAI.Temperature),
			processor.WithProgress(options.progress),
			processor.WithLogger(options.logger.Named("processor")),
		),
		generator: dataset.New(
			dataset.WithProgress(options.progress),
			dataset.WithLogger(options.logger.Named("dataset")),
			dataset.WithClock(options.now),
		),
		options: options,
	}, nil
}

func NewJina(cfg *config.Config, logger *zap.Logger, progress io.Writer) (*jina.Client, error) {
	return jina.New(
		jina.WithAPIKey(cfg.JinaAPIKey),
		jina.WithDelay(cfg.Pipeline.JinaInterval()),
		jina.WithTimeout(cfg.Fetcher.TimeoutDuration()),
		jina.WithInsecureFallback(cfg.Fetcher.InsecureFallback),
		jina.WithProgress(progress),
		jina.WithLogger(logger.Named("jina")),
	)
}

func NewLLM(cfg *config.Config, tracer *trace.Ledger, logger *zap.Logger) (*llm.Client, error) {
	return llm.New(
		llm.WithAPIKey(cfg.OpenAIAPIKey),
		llm.WithBaseURL(cfg.OpenAIBaseURL),
		llm.WithModel(cfg.OpenAI.Model),
		llm.WithTimeout(time.Duration(cfg.OpenAI.Timeout)*time.Second),
		llm.WithDelay(cfg.Pipeline.OpenAIInterval()),
		llm.WithRetries(cfg.OpenAI.Retries, 2*time.Second),
		llm.WithTracer(tracer),
		llm.WithLogger(logger.Named("openai")),
	)
}

func (p *Pipeline) stamp() string {
	return p.now().Format("20060102_150405")
}

// 新的运行ID
func (p *Pipeline) NextID() string {
	return p.node.Generate().String()
}

// 抓取后保存为crawl_results_{时间戳}.json，URL列表为空时使用默认列表
func (p *Pipeline) CrawlToFile(ctx context.Context, urls []string) (string, jina.CrawlReport, error) {
	if len(urls) == 0 {
		urls = p.cfg.Pipeline.BaseURLs
	}
	report, err := p.Crawl(ctx, p.NextID(), urls)
	if err != nil {
		return "", report, err
	}
	path := filepath.Join(p.cfg.Pipeline.CrawlDir, fmt.Sprintf("crawl_results_%s.json", p.stamp()))
	if err := filestorage.WriteJSON(path, report); err != nil {
		return "", report, err
	}
	p.logger.Info("crawl results saved", zap.String("path", path))
	return path, report, nil
}

/*
输入上下文和URL列表，输出训练数据文件路径和错误

URL列表为空时使用配置中的默认列表
*/
func (p *Pipeline) Run(ctx context.Context, urls []string) (string, error) {
	if len(urls) == 0 {
		urls = p.cfg.Pipeline.BaseURLs
	}
	id := p.NextID()
	logger := p.logger.With(zap.String("run_id", id))

	for _, dir := range []string{p.cfg.Pipeline.CrawlDir, p.cfg.Pipeline.ProcessedDir, p.cfg.Pipeline.TrainingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	ts := p.stamp()

	logger.Info("starting stage 1: web crawling", zap.Int("urls", len(urls)))
	crawled, err := p.Crawl(ctx, id, urls)
	if err != nil {
		logger.Error("pipeline failed", zap.Error(err))
		return "", err
	}
	crawlFile := filepath.Join(p.cfg.Pipeline.CrawlDir, fmt.Sprintf("crawl_results_%s.json", ts))
	if err := filestorage.WriteJSON(crawlFile, crawled); err != nil {
		return "", err
	}
	logger.Info("crawl results saved", zap.String("path", crawlFile))

	logger.Info("starting stage 2: content processing")
	processed := p.processor.ProcessCrawlResults(ctx, crawled)
	processedFile := filepath.Join(p.cfg.Pipeline.ProcessedDir, fmt.Sprintf("processed_results_%s.json", ts))
	if err := filestorage.WriteJSON(processedFile, processed); err != nil {
		return "", err
	}
	logger.Info("processed results saved", zap.String("path", processedFile))

	logger.Info("starting stage 3: training data generation")
	td := p.generator.Generate(processed)
	trainingFile := filepath.Join(p.cfg.Pipeline.TrainingDir, fmt.Sprintf("training_data_%s.json", ts))
	if err := filestorage.WriteJSON(trainingFile, td); err != nil {
		return "", err
	}
	logger.Info("pipeline completed", zap.String("training_file", trainingFile))
	return trainingFile, nil
}

/*
输入上下文、运行ID和URL列表，输出抓取报告和错误

由爬虫引擎通过Jina逐个抓取，结果按输入顺序排列；配置了savePerURL时每个URL另存一个文件
*/
func (p *Pipeline) Crawl(ctx context.Context, id string, urls []string) (jina.CrawlReport, error) {
	if p.jina == nil {
		return jina.CrawlReport{}, jina.ErrNoAPIKey
	}
	logger := p.logger.With(zap.String("run_id", id))

	collector := storage.NewCollector()
	progress := newProgressSink(len(urls), "Crawling URLs", p.progress)
	sinks := storage.Multi{collector, progress}
	if p.cfg.Pipeline.SavePerURL {
		fs, err := filestorage.New(p.cfg.Pipeline.CrawlDir, logger.Named("filestorage"))
		if err != nil {
			return jina.CrawlReport{}, err
		}
		sinks = append(sinks, fs)
	}
	if p.storage != nil {
		sinks = append(sinks, p.storage)
	}

	task := fraud165.NewTask(urls,
		spider.WithFetcher(p.jina),
		spider.WithStorage(sinks),
		spider.WithLogger(logger),
	)
	err := p.runEngine(ctx, id, logger, task)
	_ = progress.bar.Finish()
	if err != nil {
		return jina.CrawlReport{}, err
	}

	cells := collector.Cells()
	results := make([]jina.CrawlResult, 0, len(cells))
	for _, c := range cells {
		results = append(results, jina.ResultFromCell(c))
	}
	report := jina.NewReport(results)
	report.TotalURLs = len(urls)
	logger.Info("crawling completed",
		zap.Int("success", report.SuccessfulCrawls),
		zap.Int("total", report.TotalURLs))
	return report, nil
}

func (p *Pipeline) runEngine(ctx context.Context, id string, logger *zap.Logger, tasks ...*spider.Task) error {
	workers := p.cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}
	s, err := workerengine.NewWorkerService(
		workerengine.WithID(id),
		workerengine.WithWorkCount(workers),
		workerengine.WithSeeds(tasks),
		workerengine.WithLogger(logger.Named("engine")),
	)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// 读取抓取结果文件后执行整理阶段
func (p *Pipeline) Process(ctx context.Context, crawlFile string) (string, error) {
	var report jina.CrawlReport
	if err := filestorage.ReadJSON(crawlFile, &report); err != nil {
		return "", err
	}
	processed := p.processor.ProcessCrawlResults(ctx, report)
	out := filepath.Join(p.cfg.Pipeline.ProcessedDir, fmt.Sprintf("processed_results_%s.json", p.stamp()))
	if err := filestorage.WriteJSON(out, processed); err != nil {
		return "", err
	}
	p.logger.Info("processed results saved", zap.String("path", out))
	return out, nil
}

// 读取若干整理结果文件后生成训练数据，完整、SFT、RLHF分别存档
func (p *Pipeline) Generate(files []string) (dataset.Paths, error) {
	td, individuals, err := p.generator.GenerateFromFiles(files)
	if err != nil {
		p.logger.Warn("some files were skipped", zap.Error(err))
	}
	if len(individuals) == 0 {
		return dataset.Paths{}, fmt.Errorf("no usable input files: %w", err)
	}
	return p.generator.SaveSplit(p.cfg.Pipeline.TrainingDir, "training_data", td, individuals)
}

// 每保存一个数据单元进度条前进一格
type progressSink struct {
	bar *progressbar.ProgressBar
}

func newProgressSink(n int, desc string, w io.Writer) *progressSink {
	return &progressSink{bar: progressbar.NewOptions(n,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
	)}
}

func (s *progressSink) Save(cells ...*spider.DataCell) error {
	return s.bar.Add(len(cells))
}
