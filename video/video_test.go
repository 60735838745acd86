package video

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/dszqbsm/fraudcrawler/llm/llmtest"
	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
	"github.com/dszqbsm/fraudcrawler/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

var fixed = func() time.Time { return time.Date(2025, 3, 1, 17, 29, 55, 0, time.UTC) }

// 模拟yt-dlp、ffprobe和ffmpeg，下载和截图时写出空文件
type fakeRunner struct {
	mu       sync.Mutex
	info     string
	duration string
	failOn   string // 该命令返回错误
	calls    []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if name == f.failOn {
		return nil, errors.New(name + " failed")
	}

	switch name {
	case "yt-dlp":
		if args[0] == "--skip-download" {
			if strings.Contains(args[len(args)-1], "panic") {
				panic("boom")
			}
			return []byte(f.info + "\n"), nil
		}
		for i, a := range args {
			if a == "-o" {
				return nil, os.WriteFile(args[i+1], []byte("mp4"), 0o644)
			}
		}
	case "ffprobe":
		return []byte(f.duration + "\n"), nil
	case "ffmpeg":
		return nil, os.WriteFile(args[len(args)-1], []byte("jpg"), 0o644)
	}
	return nil, nil
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "abc", VideoID("https://youtu.be/abc"))
	assert.Equal(t, "xyz", VideoID("https://www.youtube.com/watch?v=xyz&t=10"))
	assert.Equal(t, "", VideoID("https://example.com/watch?v=xyz"))
	assert.Equal(t, "", VideoID("https://youtube.com/shorts/xyz"))

	assert.Equal(t, Hash("https://youtu.be/abc"), Hash("https://www.youtube.com/watch?v=abc"))
	assert.Equal(t, "acbd18db4cc2f85cedef654fccc4a4d8", Hash("foo"))

	assert.Equal(t, "a_b_c_d_e_f_g_h_i", Sanitize(`a\b/c*d?e:f"g<h>i`))
	assert.Equal(t, "01:01:01", clock(3661))

	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# list\nhttps://youtu.be/a\n\n  https://youtu.be/b  \n"), 0o644))
	urls, err := ReadURLFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/a", "https://youtu.be/b"}, urls)
}

func TestInfo(t *testing.T) {
	ctx := context.Background()
	tools := NewTools(&fakeRunner{info: "防詐宣導|125|20240105"}, nil)
	info := tools.Info(ctx, "https://youtu.be/abc")
	assert.Equal(t, Info{Title: "防詐宣導", Duration: 125, UploadDate: "2024-01-05", URL: "https://youtu.be/abc", VideoID: "abc"}, info)

	info = NewTools(&fakeRunner{info: "標題|NA|NA"}, nil).Info(ctx, "u")
	assert.Equal(t, 0, info.Duration)
	assert.Equal(t, unknownDate, info.UploadDate)

	info = NewTools(&fakeRunner{failOn: "yt-dlp"}, nil).Info(ctx, "u")
	assert.Equal(t, unknownTitle, info.Title)
}

func TestExtractFrames(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{duration: "35.4"}
	frames, err := NewTools(r, nil).ExtractFrames(context.Background(), "v.mp4", dir, 10, 0)
	require.NoError(t, err)
	require.Len(t, frames, 4)
	assert.Equal(t, filepath.Join(dir, "frame_0030_00:00:30.jpg"), frames[3].Path)
	assert.Equal(t, 30, frames[3].Time)

	frames, err = NewTools(&fakeRunner{duration: "3600"}, nil).ExtractFrames(context.Background(), "v.mp4", dir, 10, 20)
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	_, err = NewTools(&fakeRunner{failOn: "ffprobe"}, nil).ExtractFrames(context.Background(), "v.mp4", dir, 10, 0)
	assert.Error(t, err)
}

func TestDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	db := OpenDB(path, nil)
	assert.Equal(t, 0, db.Len())
	db.Put("h", Entry{Title: "t", FramesCount: 2})
	require.NoError(t, db.Save())

	again := OpenDB(path, nil)
	e, ok := again.Get("h")
	require.True(t, ok)
	assert.Equal(t, 2, e.FramesCount)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	assert.Equal(t, 0, OpenDB(path, nil).Len())
}

func newAnalyzer(t *testing.T) (*Analyzer, *llmtest.Server) {
	t.Helper()
	srv := llmtest.NewServer(t, llmtest.Reply("畫面顯示假客服\n\n不要操作ATM"))
	c, err := llm.New(llm.WithAPIKey("sk-test"), llm.WithBaseURL(srv.BaseURL()), llm.WithDelay(0), llm.WithRetries(0, time.Millisecond))
	require.NoError(t, err)
	return NewAnalyzer(c), srv
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	ledger, err := trace.Open(filepath.Join(t.TempDir(), "trace.jsonl"), nil)
	require.NoError(t, err)
	defer ledger.Close()

	analyzer, ai := newAnalyzer(t)
	runner := &fakeRunner{info: "假客服詐騙<宣導>|25|20240105", duration: "25"}
	db := OpenDB(filepath.Join(out, "db.json"), nil)
	p := NewProcessor(db, NewTools(runner, nil), analyzer,
		WithOutput(out),
		WithFrameDelay(0),
		WithTracer(ledger),
		WithProgress(io.Discard),
		WithClock(fixed),
	)

	results, err := p.Run(context.Background(), []string{"https://youtu.be/abc", "https://youtu.be/panic"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	ok := results[0]
	require.Equal(t, StatusSuccess, ok.Status, ok.Error)
	assert.Equal(t, 3, ok.FramesCount)
	assert.Equal(t, filepath.Join(out, "20250301_172955_假客服詐騙_宣導__"+Hash("https://youtu.be/abc")[:8]), ok.OutputFolder)
	assert.Len(t, ai.Requests(), 4)

	var analyses []FrameAnalysis
	require.NoError(t, filestorage.ReadJSON(filepath.Join(ok.OutputFolder, "frame_analyses.json"), &analyses))
	require.Len(t, analyses, 3)
	assert.Equal(t, filepath.Join("frames", "frame_0020_00:00:20.jpg"), analyses[2].FramePath)

	report, err := os.ReadFile(filepath.Join(ok.OutputFolder, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "假客服詐騙&lt;宣導&gt;")
	assert.Contains(t, string(report), "畫面顯示假客服<br><br>不要操作ATM")

	_, err = os.Stat(filepath.Join(ok.OutputFolder, "temp", "video.mp4"))
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, "boom", results[1].Error)

	master, err := os.ReadFile(filepath.Join(out, "master_report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(master), "查看報告")
	assert.Contains(t, string(master), "處理失敗: boom")

	cost, err := trace.CostReport(ledger.Path())
	require.NoError(t, err)
	assert.Greater(t, cost.TotalCost, 0.0)
	_, err = os.Stat(filepath.Join(out, "cost_report.json"))
	assert.NoError(t, err)

	assert.True(t, OpenDB(filepath.Join(out, "db.json"), nil).Has(Hash("https://youtu.be/abc")))

	again, err := p.Run(context.Background(), []string{"https://www.youtube.com/watch?v=abc"})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, again[0].Status)
}

func TestProcessFailures(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()

	p := NewProcessor(nil, NewTools(&fakeRunner{info: "t|1|x", failOn: "ffmpeg", duration: "5"}, nil), nil,
		WithOutput(out), WithProgress(io.Discard), WithClock(fixed))
	assert.Equal(t, ErrExtractionFailed, p.Process(ctx, "u").Error)

	r := &fakeRunner{info: "t|1|x"}
	r.failOn = "yt-dlp"
	p = NewProcessor(nil, NewTools(r, nil), nil, WithOutput(out), WithProgress(io.Discard), WithClock(fixed))
	assert.Equal(t, ErrDownloadFailed, p.Process(ctx, "u").Error)
}

func TestProcessFramesOnly(t *testing.T) {
	runner := &fakeRunner{info: "t|20|20240101", duration: "20"}
	p := NewProcessor(OpenDB(filepath.Join(t.TempDir(), "db.json"), nil), NewTools(runner, nil), nil,
		WithOutput(t.TempDir()),
		WithSkipAnalysis(true),
		WithProgress(io.Discard),
		WithClock(fixed),
	)
	res := p.Process(context.Background(), "https://youtu.be/x")
	assert.Equal(t, StatusFramesOnly, res.Status)
	assert.Equal(t, 2, res.FramesCount)
	assert.Equal(t, 2, runner.count("ffmpeg"))
	assert.True(t, p.db.Has(Hash("https://youtu.be/x")))
}

func TestAnalyzerWithoutClient(t *testing.T) {
	img := filepath.Join(t.TempDir(), "f.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpg"), 0o644))

	var a *Analyzer
	desc := a.AnalyzeFrame(context.Background(), Frame{Path: img, TimeStr: "00:00:00"}, "t", nil)
	assert.True(t, strings.HasPrefix(desc, "分析失敗: "))
	assert.True(t, strings.HasPrefix(a.Summarize(context.Background(), nil, "t", nil), "摘要生成失敗: "))
}
