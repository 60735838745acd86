package video

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var funcs = template.FuncMap{
	// 转义后把换行换成<br>
	"br": func(s string) template.HTML {
		return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
	},
}

const reportHTML = `<!DOCTYPE html>
<html lang="zh-TW">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>反詐騙視頻分析: {{.Info.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; margin: 0; padding: 20px; color: #333; }
        h1, h2, h3 { color: #2c3e50; }
        .container { max-width: 1200px; margin: 0 auto; }
        .video-info { background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .summary { background-color: #e9f7ef; padding: 15px; border-radius: 5px; margin-bottom: 30px; }
        .frame-analysis { display: flex; margin-bottom: 30px; border: 1px solid #ddd; border-radius: 5px; overflow: hidden; }
        .frame-img { flex: 0 0 320px; padding: 10px; }
        .frame-img img { max-width: 100%; border-radius: 3px; }
        .frame-content { flex: 1; padding: 15px; }
        .timestamp { font-weight: bold; color: #3498db; }
        .footer { margin-top: 40px; padding-top: 20px; border-top: 1px solid #ddd; color: #777; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="container">
        <h1>反詐騙視頻分析報告</h1>
        <div class="video-info">
            <h2>視頻信息</h2>
            <p><strong>標題:</strong> {{.Info.Title}}</p>
            <p><strong>上傳日期:</strong> {{.Info.UploadDate}}</p>
            <p><strong>時長:</strong> {{.Info.Duration}} 秒</p>
            <p><strong>URL:</strong> <a href="{{.Info.URL}}" target="_blank">{{.Info.URL}}</a></p>
        </div>
        <div class="summary">
            <h2>視頻摘要</h2>
            {{br .Summary}}
        </div>
        <h2>幀分析</h2>
{{range .Analyses}}        <div class="frame-analysis">
            <div class="frame-img">
                <p class="timestamp">時間點: {{.TimeStr}}</p>
                <img src="{{.FramePath}}" alt="Frame at {{.TimeStr}}">
            </div>
            <div class="frame-content">
                <h3>內容分析</h3>
                {{br .Description}}
            </div>
        </div>
{{end}}        <div class="footer">
            <p>分析生成時間: {{.Generated}}</p>
            <p>這份報告使用AI技術自動生成，僅供參考。</p>
        </div>
    </div>
</body>
</html>
`

const masterHTML = `<!DOCTYPE html>
<html lang="zh-TW">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>反詐騙視頻分析總報告</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; margin: 0; padding: 20px; color: #333; }
        h1, h2, h3 { color: #2c3e50; }
        .container { max-width: 1200px; margin: 0 auto; }
        .stats { background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin-bottom: 20px; display: flex; }
        .stat-item { flex: 1; text-align: center; padding: 10px; }
        .stat-number { font-size: 2em; font-weight: bold; color: #3498db; }
        .stat-label { font-size: 0.9em; color: #777; }
        .video-item { border: 1px solid #ddd; padding: 15px; margin-bottom: 15px; border-radius: 5px; }
        .success { border-left: 5px solid #2ecc71; }
        .skipped { border-left: 5px solid #f39c12; }
        .failed { border-left: 5px solid #e74c3c; }
        .video-title { font-size: 1.2em; font-weight: bold; margin-bottom: 10px; }
        .video-meta { color: #777; font-size: 0.9em; margin-bottom: 10px; }
        .video-status { display: inline-block; padding: 3px 8px; border-radius: 3px; font-size: 0.8em; margin-left: 10px; }
        .status-success { background-color: #d5f5e3; color: #2ecc71; }
        .status-skipped { background-color: #fef9e7; color: #f39c12; }
        .status-failed { background-color: #fadbd8; color: #e74c3c; }
        .footer { margin-top: 40px; padding-top: 20px; border-top: 1px solid #ddd; color: #777; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="container">
        <h1>反詐騙視頻分析總報告</h1>
        <div class="stats">
            <div class="stat-item"><div class="stat-number">{{.Total}}</div><div class="stat-label">總視頻數</div></div>
            <div class="stat-item"><div class="stat-number">{{.Processed}}</div><div class="stat-label">成功處理</div></div>
            <div class="stat-item"><div class="stat-number">{{.Skipped}}</div><div class="stat-label">已跳過</div></div>
            <div class="stat-item"><div class="stat-number">{{.Failed}}</div><div class="stat-label">處理失敗</div></div>
        </div>
        <h2>處理結果</h2>
        <div class="video-list">
{{range .Items}}            <div class="video-item {{.Class}}">
                <div class="video-title">
                    {{.Title}}
                    <span class="video-status status-{{.Class}}">{{.StatusText}}</span>
                </div>
                <div class="video-meta">
                    <div>上傳日期: {{.UploadDate}}</div>
                    <div>URL: <a href="{{.URL}}" target="_blank">{{.URL}}</a></div>
                    {{if .Link}}<a href="{{.Link}}">查看報告</a>{{end}}
                </div>
            </div>
{{end}}        </div>
        <div class="footer">
            <p>報告生成時間: {{.Generated}}</p>
            <p>這份報告使用AI技術自動生成，僅供參考。</p>
        </div>
    </div>
</body>
</html>
`

var (
	reportTmpl = template.Must(template.New("report").Funcs(funcs).Parse(reportHTML))
	masterTmpl = template.Must(template.New("master").Funcs(funcs).Parse(masterHTML))
)

func render(t *template.Template, path string, data interface{}) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// 在视频目录下生成report.html
func Report(folder string, info Info, analyses []FrameAnalysis, summary string, now time.Time) error {
	for i := range analyses {
		analyses[i].FramePath = filepath.ToSlash(analyses[i].FramePath)
	}
	return render(reportTmpl, filepath.Join(folder, "report.html"), struct {
		Info      Info
		Analyses  []FrameAnalysis
		Summary   string
		Generated string
	}{info, analyses, summary, now.Format("2006-01-02 15:04:05")})
}

type masterItem struct {
	Class      string
	StatusText string
	Title      string
	UploadDate string
	URL        string
	Link       string
}

/*
输入输出目录、全部处理结果和时间，输出错误

在输出目录生成master_report.html；结果按状态名倒序排列，成功的条目链接到各自的报告
*/
func MasterReport(dir string, results []Result, now time.Time) error {
	sorted := append([]Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Status > sorted[j].Status })

	data := struct {
		Total, Processed, Skipped, Failed int
		Items                             []masterItem
		Generated                         string
	}{Total: len(results), Generated: now.Format("2006-01-02 15:04:05")}

	for _, r := range sorted {
		item := masterItem{Title: r.Info.Title, UploadDate: r.Info.UploadDate, URL: r.Info.URL}
		if item.UploadDate == "" {
			item.UploadDate = "未知"
		}
		switch r.Status {
		case StatusSuccess, StatusFramesOnly:
			data.Processed++
			item.Class = "success"
			item.StatusText = "成功處理"
			if r.Status == StatusFramesOnly {
				item.StatusText = "僅提取幀"
			}
			if rel, err := filepath.Rel(dir, filepath.Join(r.OutputFolder, "report.html")); err == nil {
				item.Link = filepath.ToSlash(rel)
			}
		case StatusSkipped:
			data.Skipped++
			item.Class = "skipped"
			item.StatusText = "已跳過"
		default:
			data.Failed++
			item.Class = "failed"
			msg := r.Error
			if msg == "" {
				msg = "unknown error"
			}
			item.StatusText = "處理失敗: " + msg
		}
		data.Items = append(data.Items, item)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return render(masterTmpl, filepath.Join(dir, "master_report.html"), data)
}
