package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	unknownTitle = "未知標題"
	unknownDate  = "未知日期"
)

// 执行外部命令并返回标准输出
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

type Info struct {
	Title      string `json:"title"`
	Duration   int    `json:"duration"`
	UploadDate string `json:"upload_date"`
	URL        string `json:"url"`
	VideoID    string `json:"video_id"`
}

type Frame struct {
	Path    string
	Time    int // 秒
	TimeStr string
}

// 通过yt-dlp、ffprobe和ffmpeg操作视频
type Tools struct {
	runner Runner
	logger *zap.Logger
}

func NewTools(r Runner, logger *zap.Logger) *Tools {
	if r == nil {
		r = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{runner: r, logger: logger}
}

/*
输入上下文和URL，输出视频信息

取不到信息时标题为"未知標題"，日期为"未知日期"，时长为0
*/
func (t *Tools) Info(ctx context.Context, raw string) Info {
	info := Info{Title: unknownTitle, UploadDate: unknownDate, URL: raw, VideoID: VideoID(raw)}

	out, err := t.runner.Run(ctx, "yt-dlp", "--skip-download", "--print", "%(title)s|%(duration)s|%(upload_date)s", raw)
	if err != nil {
		t.logger.Warn("get video info failed", zap.String("url", raw), zap.Error(err))
		return info
	}
	parts := strings.Split(strings.TrimSpace(string(out)), "|")
	if len(parts) < 3 {
		return info
	}

	info.Title = parts[0]
	if d, err := strconv.Atoi(parts[1]); err == nil && d >= 0 {
		info.Duration = d
	}
	if date := parts[2]; len(date) == 8 {
		info.UploadDate = date[:4] + "-" + date[4:6] + "-" + date[6:]
	}
	return info
}

// 下载最低画质的mp4到path
func (t *Tools) Download(ctx context.Context, info Info, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	t.logger.Info("downloading video", zap.String("title", info.Title))
	_, err := t.runner.Run(ctx, "yt-dlp",
		"-f", "worst[ext=mp4]",
		"--restrict-filenames",
		"-o", path,
		"--no-playlist",
		info.URL,
	)
	return err
}

func (t *Tools) duration(ctx context.Context, video string) (float64, error) {
	out, err := t.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		video,
	)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", video, err)
	}
	return d, nil
}

/*
输入上下文、视频路径、输出目录、间隔秒数和最长处理秒数，输出截取的帧和错误

从0秒开始每隔interval秒截一帧，文件名为frame_{秒数:04d}_{HH:MM:SS}.jpg；maxDuration为0时处理整个视频；截取失败的时间点跳过
*/
func (t *Tools) ExtractFrames(ctx context.Context, video, dir string, interval, maxDuration int) ([]Frame, error) {
	if interval <= 0 {
		interval = 10
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	total, err := t.duration(ctx, video)
	if err != nil {
		return nil, err
	}
	if maxDuration > 0 && total > float64(maxDuration) {
		t.logger.Info("video is long, only the beginning is processed", zap.Int("max_duration", maxDuration))
		total = float64(maxDuration)
	}

	var frames []Frame
	for sec := 0; sec < int(total); sec += interval {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		ts := clock(sec)
		out := filepath.Join(dir, fmt.Sprintf("frame_%04d_%s.jpg", sec, ts))
		_, err := t.runner.Run(ctx, "ffmpeg",
			"-y", "-v", "error",
			"-ss", strconv.Itoa(sec),
			"-i", video,
			"-frames:v", "1",
			"-q:v", "2",
			out,
		)
		if err != nil {
			t.logger.Warn("extract frame failed", zap.Int("second", sec), zap.Error(err))
			continue
		}
		if _, err := os.Stat(out); err != nil {
			continue
		}
		frames = append(frames, Frame{Path: out, Time: sec, TimeStr: ts})
	}
	t.logger.Info("frames extracted", zap.Int("count", len(frames)))
	return frames, nil
}
