package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/dszqbsm/fraudcrawler/jina"
	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const SystemPrompt = "你是一個專業的資料整理助手，專長於提取和分析防詐騙資訊。"

const promptText = `以下是從「165全民防騙網」({{ .URL }})使用Jina API擷取的內容。
請將此內容整理為結構化資料，包含以下資訊：

1. 網站主題摘要
2. 主要的詐騙警示訊息
3. 列出至少3種詐騙類型
4. 提取預防詐騙的建議
5. 提取的重要連結與資源

請以JSON格式回應，確保所有內容都是繁體中文。

網頁內容：
{{ .Content | trim }}
`

var promptTmpl = template.Must(template.New("summary").Funcs(sprig.TxtFuncMap()).Parse(promptText))

type OpenAIResult struct {
	Success        bool        `json:"success"`
	StructuredData interface{} `json:"structured_data,omitempty"` // 任意合法JSON
	Error          string      `json:"error,omitempty"`
	RawResponse    string      `json:"raw_response,omitempty"`
}

// 单条抓取结果的处理结果
type Result struct {
	URL                   string        `json:"url"`
	Success               bool          `json:"success"`
	Title                 string        `json:"title,omitempty"`
	Error                 string        `json:"error,omitempty"`
	OriginalError         string        `json:"original_error,omitempty"`
	JinaRawResponseSample string        `json:"jina_raw_response_sample,omitempty"`
	ParsedContentSample   string        `json:"parsed_content_sample,omitempty"`
	ParsedContent         string        `json:"parsed_content,omitempty"`
	OpenAIProcessing      *OpenAIResult `json:"openai_processing,omitempty"`
	Timestamp             string        `json:"timestamp"`
}

type Report struct {
	TotalItems          int      `json:"total_items"`
	SuccessfulProcesses int      `json:"successful_processes"`
	Timestamp           string   `json:"timestamp"`
	Results             []Result `json:"results"`
}

type Option func(opts *options)

type options struct {
	client          *llm.Client // 为nil时只做内容解析
	maxContentChars int
	temperature     float32
	progress        io.Writer
	logger          *zap.Logger
}

var defaultOptions = options{
	maxContentChars: 4000,
	temperature:     0.3,
	progress:        os.Stderr,
	logger:          zap.NewNop(),
}

func WithClient(c *llm.Client) Option {
	return func(opts *options) {
		opts.client = c
	}
}

func WithMaxContentChars(n int) Option {
	return func(opts *options) {
		opts.maxContentChars = n
	}
}

func WithTemperature(t float32) Option {
	return func(opts *options) {
		opts.temperature = t
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

// 整理抓取内容，有OpenAI客户端时生成结构化数据
type Processor struct {
	options
}

func New(opts ...Option) *Processor {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Processor{options: options}
}

// 渲染发给OpenAI的提示词，内容按字符数截断
func Prompt(url, content string, maxChars int) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, map[string]string{
		"URL":     url,
		"Content": llm.Truncate(content, maxChars),
	})
	return buf.String(), err
}

/*
输入上下文、解析后的内容和来源URL，输出OpenAI处理结果

任何失败都体现在结果的success和error字段中
*/
func (p *Processor) ProcessWithOpenAI(ctx context.Context, content, url string) OpenAIResult {
	if p.client == nil {
		return OpenAIResult{Error: llm.ErrNoAPIKey.Error()}
	}

	prompt, err := Prompt(url, content, p.maxContentChars)
	if err != nil {
		return OpenAIResult{Error: fmt.Sprintf("Error processing with OpenAI: %v", err)}
	}

	resp, err := p.client.Chat(ctx, llm.Request{
		Name:        "content_summary",
		System:      SystemPrompt,
		Prompt:      prompt,
		Temperature: p.temperature,
		JSON:        true,
		Inputs:      map[string]interface{}{"url": url},
	})
	if err != nil {
		if errors.Is(err, llm.ErrNoResponse) {
			return OpenAIResult{Error: llm.ErrNoResponse.Error(), RawResponse: llm.ResponseBody(err)}
		}
		if code := llm.StatusCode(err); code != 0 {
			return OpenAIResult{
				Error:       fmt.Sprintf("OpenAI API returned error code: %d", code),
				RawResponse: llm.ResponseBody(err),
			}
		}
		return OpenAIResult{Error: fmt.Sprintf("Error processing with OpenAI: %v", err)}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(resp.Content), &data); err != nil {
		return OpenAIResult{
			Error:       fmt.Sprintf("Error processing with OpenAI: %v", err),
			RawResponse: resp.Content,
		}
	}
	return OpenAIResult{Success: true, StructuredData: data}
}

/*
输入上下文和一条抓取结果，输出处理结果

抓取失败的直接跳过；没有OpenAI客户端时只返回解析后的全文
*/
func (p *Processor) ProcessContent(ctx context.Context, cr jina.CrawlResult) Result {
	if !cr.Success {
		url := cr.URL
		if url == "" {
			url = "unknown"
		}
		p.logger.Warn("skipping processing for failed crawl", zap.String("url", url))
		origin := cr.Error
		if origin == "" {
			origin = "Unknown error"
		}
		return Result{
			URL:           url,
			Error:         "Skipped processing due to failed crawl",
			OriginalError: origin,
			Timestamp:     spider.Timestamp(),
		}
	}

	parsed := ParseContent(cr.Content, p.logger)
	if p.client == nil {
		p.logger.Warn("no OpenAI API key provided, returning parsed content only")
		return Result{
			URL:           cr.URL,
			Success:       true,
			Title:         cr.Title,
			ParsedContent: parsed,
			Timestamp:     spider.Timestamp(),
		}
	}

	p.logger.Info("processing content with OpenAI", zap.String("url", cr.URL))
	ai := p.ProcessWithOpenAI(ctx, parsed, cr.URL)
	return Result{
		URL:                   cr.URL,
		Success:               true,
		Title:                 cr.Title,
		JinaRawResponseSample: llm.Sample(cr.Content, 500),
		ParsedContentSample:   llm.Sample(parsed, 1000),
		OpenAIProcessing:      &ai,
		Timestamp:             spider.Timestamp(),
	}
}

func (p *Processor) ProcessCrawlResults(ctx context.Context, report jina.CrawlReport) Report {
	p.logger.Info("starting to process crawl results", zap.Int("count", len(report.Results)))

	bar := progressbar.NewOptions(len(report.Results),
		progressbar.OptionSetDescription("Processing crawl results"),
		progressbar.OptionSetWriter(p.progress),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
	)

	out := Report{
		TotalItems: len(report.Results),
		Results:    make([]Result, 0, len(report.Results)),
	}
	for _, cr := range report.Results {
		r := p.ProcessContent(ctx, cr)
		if r.Success {
			out.SuccessfulProcesses++
		}
		out.Results = append(out.Results, r)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	out.Timestamp = spider.Timestamp()

	p.logger.Info("processing completed",
		zap.Int("success", out.SuccessfulProcesses),
		zap.Int("total", out.TotalItems))
	return out
}
