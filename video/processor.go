// Package video 下载反诈骗宣导视频，定时截图后用视觉模型分析并生成摘要和HTML报告
package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
	"github.com/dszqbsm/fraudcrawler/trace"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	StatusSuccess    = "success"
	StatusFramesOnly = "success_frames_only"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

const (
	ErrDownloadFailed   = "download_failed"
	ErrExtractionFailed = "frame_extraction_failed"
)

type Result struct {
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	Info         Info   `json:"video_info"`
	Hash         string `json:"hash"`
	OutputFolder string `json:"output_folder,omitempty"`
	FramesCount  int    `json:"frames_count,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

type Processor struct {
	db       *DB
	tools    *Tools
	analyzer *Analyzer
	options
}

func NewProcessor(db *DB, tools *Tools, analyzer *Analyzer, opts ...Option) *Processor {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if tools == nil {
		tools = NewTools(nil, options.logger)
	}
	return &Processor{db: db, tools: tools, analyzer: analyzer, options: options}
}

// 只删除目录下的文件
func cleanFiles(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

/*
输入上下文和视频URL，输出处理结果

已处理过且未设置force时跳过；下载、截图失败时返回failed；只截图时返回success_frames_only。
目录为{output}/{时间戳}_{标题前30字}_{哈希前8位}，每分析完一帧重写frame_analyses.json
*/
func (p *Processor) Process(ctx context.Context, raw string) (res Result) {
	hash := Hash(raw)
	info := p.tools.Info(ctx, raw)
	res = Result{Info: info, Hash: hash}
	logger := p.logger.With(zap.String("url", raw), zap.String("title", info.Title))

	run := p.tracer.Start("process_video", trace.TypeChain, map[string]interface{}{
		"video_url":    raw,
		"video_info":   info,
		"interval":     p.interval,
		"max_duration": p.maxDuration,
	}, nil)
	defer func() {
		outputs := map[string]interface{}{"status": res.Status}
		if res.FramesCount > 0 {
			outputs["frames_count"] = res.FramesCount
		}
		var meta map[string]interface{}
		if res.Error != "" {
			meta = map[string]interface{}{"error": res.Error}
		}
		_ = run.Finish(outputs, meta, nil)
	}()

	if p.db != nil && p.db.Has(hash) && !p.force {
		logger.Info("video already processed, skipping")
		res.Status = StatusSkipped
		return res
	}

	date := p.now().Format("20060102_150405")
	folder := filepath.Join(p.output, fmt.Sprintf("%s_%s_%s", date, prefix(Sanitize(info.Title), 30), hash[:8]))
	framesDir := filepath.Join(folder, "frames")
	tempDir := filepath.Join(folder, "temp")
	for _, dir := range []string{folder, framesDir, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return p.fail(res, err.Error())
		}
	}
	if err := filestorage.WriteJSON(filepath.Join(folder, "video_info.json"), info); err != nil {
		return p.fail(res, err.Error())
	}

	videoPath := filepath.Join(tempDir, "video.mp4")
	dl := run.Child("download_video", trace.TypeTool, map[string]interface{}{"video_url": raw})
	err := p.tools.Download(ctx, info, videoPath)
	_ = dl.Finish(map[string]interface{}{"success": err == nil}, nil, err)
	if err != nil {
		logger.Warn("download failed", zap.Error(err))
		return p.fail(res, ErrDownloadFailed)
	}

	ex := run.Child("extract_frames", trace.TypeTool, map[string]interface{}{
		"video_path":   videoPath,
		"interval":     p.interval,
		"max_duration": p.maxDuration,
	})
	frames, err := p.tools.ExtractFrames(ctx, videoPath, framesDir, p.interval, p.maxDuration)
	_ = ex.Finish(map[string]interface{}{"frames_count": len(frames)}, nil, err)
	if err != nil || len(frames) == 0 {
		logger.Warn("frame extraction failed", zap.Error(err))
		return p.fail(res, ErrExtractionFailed)
	}

	res.OutputFolder = folder
	res.FramesCount = len(frames)
	entry := Entry{Title: info.Title, URL: raw, DateProcessed: date, OutputFolder: folder, FramesCount: len(frames)}

	if p.skipAnalysis {
		p.record(hash, entry)
		cleanFiles(tempDir)
		res.Status = StatusFramesOnly
		return res
	}

	analyses, err := p.analyzeFrames(ctx, run, frames, folder, info.Title, logger)
	if err != nil {
		return p.fail(res, err.Error())
	}

	summary := p.analyzer.Summarize(ctx, analyses, info.Title, run)
	if err := os.WriteFile(filepath.Join(folder, "video_summary.txt"), []byte(summary), 0o644); err != nil {
		return p.fail(res, err.Error())
	}

	rp := run.Child("generate_html_report", trace.TypeTool, map[string]interface{}{"frames_count": len(analyses)})
	err = Report(folder, info, analyses, summary, p.now())
	_ = rp.Finish(map[string]interface{}{"success": err == nil}, nil, err)
	if err != nil {
		logger.Warn("generate report failed", zap.Error(err))
	}

	p.record(hash, entry)
	cleanFiles(tempDir)
	res.Status = StatusSuccess
	res.Summary = summary
	return res
}

func (p *Processor) fail(res Result, reason string) Result {
	res.Status = StatusFailed
	res.Error = reason
	return res
}

func (p *Processor) record(hash string, e Entry) {
	if p.db != nil {
		p.db.Put(hash, e)
	}
}

func (p *Processor) analyzeFrames(ctx context.Context, parent *trace.Run, frames []Frame, folder, title string, logger *zap.Logger) ([]FrameAnalysis, error) {
	run := parent.Child("analyze_frames", trace.TypeChain, map[string]interface{}{"frames_count": len(frames)})
	analyses := make([]FrameAnalysis, 0, len(frames))
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			_ = run.Finish(map[string]interface{}{"frames_analyzed": len(analyses)}, nil, err)
			return nil, err
		}
		logger.Info("analyzing frame", zap.Int("index", i+1), zap.Int("total", len(frames)), zap.String("time", f.TimeStr))

		rel, err := filepath.Rel(folder, f.Path)
		if err != nil {
			rel = f.Path
		}
		analyses = append(analyses, FrameAnalysis{
			Time:        f.Time,
			TimeStr:     f.TimeStr,
			Description: p.analyzer.AnalyzeFrame(ctx, f, title, run),
			FramePath:   rel,
		})
		if err := filestorage.WriteJSON(filepath.Join(folder, "frame_analyses.json"), analyses); err != nil {
			logger.Warn("save frame analyses failed", zap.Error(err))
		}

		if p.frameDelay > 0 && i < len(frames)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(p.frameDelay):
			}
		}
	}
	_ = run.Finish(map[string]interface{}{"frames_analyzed": len(analyses)}, nil, nil)
	return analyses, nil
}

/*
输入上下文和URL列表，输出按输入顺序排列的结果和错误

最多maxWorkers个视频并行处理，单个视频panic时记为失败；每完成一个视频保存一次记录；
全部完成后生成总报告，开启追踪时打印并保存成本报告
*/
func (p *Processor) Run(ctx context.Context, urls []string) ([]Result, error) {
	if err := os.MkdirAll(p.output, 0o755); err != nil {
		return nil, err
	}
	p.logger.Info("starting video analysis",
		zap.Int("videos", len(urls)),
		zap.Int("interval", p.interval),
		zap.Int("max_workers", p.maxWorkers),
		zap.Bool("skip_analysis", p.skipAnalysis),
		zap.Bool("force", p.force),
		zap.String("output", p.output),
		zap.Bool("tracing", p.tracer != nil))

	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetDescription("處理視頻"),
		progressbar.OptionSetWriter(p.progress),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
	)

	results := make([]Result, len(urls))
	var g errgroup.Group
	g.SetLimit(p.maxWorkers)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = p.safeProcess(ctx, u)
			if p.db != nil {
				_ = p.db.Save()
			}
			p.report(results[i])
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	_ = bar.Finish()

	if err := MasterReport(p.output, results, p.now()); err != nil {
		p.logger.Warn("generate master report failed", zap.Error(err))
	}
	p.summary(results)

	if p.tracer != nil {
		cost, err := trace.CostReport(p.tracer.Path())
		if err != nil {
			p.logger.Warn("generate cost report failed", zap.Error(err))
		} else {
			trace.Display(p.progress, cost)
			path := filepath.Join(p.output, "cost_report.json")
			if err := filestorage.WriteJSON(path, cost); err != nil {
				p.logger.Warn("save cost report failed", zap.Error(err))
			}
		}
	}

	return results, ctx.Err()
}

func (p *Processor) safeProcess(ctx context.Context, raw string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("processing video panicked", zap.String("url", raw), zap.Any("panic", r))
			res = Result{
				Status: StatusFailed,
				Error:  fmt.Sprint(r),
				Info:   Info{URL: raw, Title: "未知視頻"},
				Hash:   Hash(raw),
			}
		}
	}()
	return p.Process(ctx, raw)
}

func (p *Processor) report(r Result) {
	logger := p.logger.With(zap.String("title", r.Info.Title))
	switch r.Status {
	case StatusSuccess:
		logger.Info("video processed")
	case StatusFramesOnly:
		logger.Info("frames extracted")
	case StatusSkipped:
		logger.Info("video skipped")
	default:
		logger.Warn("video failed", zap.String("error", r.Error))
	}
}

func (p *Processor) summary(results []Result) {
	var ok, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case StatusSuccess, StatusFramesOnly:
			ok++
		case StatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	p.logger.Info("video analysis completed",
		zap.Int("total", len(results)),
		zap.Int("success", ok),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.String("master_report", filepath.Join(p.output, "master_report.html")))
}
