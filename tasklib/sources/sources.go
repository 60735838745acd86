package sources

// 按分类抓取防诈来源页面，直连失败时改走Jina

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"github.com/dszqbsm/fraudcrawler/processor"
	"github.com/dszqbsm/fraudcrawler/spider"
)

const (
	TaskName = "fraud_sources"
	RuleName = "來源頁面"
	GroupKey = "group"

	mainContentChars = 5000
)

type Source struct {
	Group    string
	URL      string
	Category string
}

var Sources = []Source{
	{Group: "最新詐騙手法", URL: "https://165.npa.gov.tw/#/articles/C", Category: "詐騙手法"},
	{Group: "最新詐騙手法", URL: "https://165.npa.gov.tw/#/articles/1", Category: "新聞快訊"},
	{Group: "最新詐騙手法", URL: "https://165.npa.gov.tw/#/articles/A", Category: "常見問答"},
	{Group: "防詐資訊", URL: "https://165.npa.gov.tw/#/articles/6", Category: "防詐資訊"},
	{Group: "防詐資訊", URL: "https://cib.npa.gov.tw/ch/app/news/list?module=news_list&type=2", Category: "警方公告"},
	{Group: "防詐資訊", URL: "https://www.npa.gov.tw/ch/app/news/list?module=news_list&type=2", Category: "警政新聞"},
}

var ItemFields = []string{"url", "category", "raw_content", "status", "timestamp", "structured_data", "error"}

var SourcesTask = NewTask(Sources)

/*
输入来源列表和任务配置项，输出任务

根任务规则：每个来源生成一个请求，临时数据中记录分组、分类和位置

子任务规则：

- 來源頁面：用XPath提取正文，附带分类、关键模式和元数据输出一条记录
*/
func NewTask(srcs []Source, opts ...spider.Option) *spider.Task {
	list := append([]Source(nil), srcs...)
	opts = append([]spider.Option{spider.WithName(TaskName), spider.WithMaxDepth(0)}, opts...)

	task := spider.NewTask(opts...)
	task.Rule = spider.RuleTree{
		Root: func() ([]*spider.Request, error) {
			roots := make([]*spider.Request, 0, len(list))
			for i, s := range list {
				req := &spider.Request{URL: s.URL, Method: "GET", RuleName: RuleName}
				t := req.Temp()
				_ = t.Set(spider.IndexKey, i)
				_ = t.Set(spider.CategoryKey, s.Category)
				_ = t.Set(GroupKey, s.Group)
				roots = append(roots, req)
			}
			return roots, nil
		},
		Trunk: map[string]*spider.Rule{
			RuleName: {ItemFields: ItemFields, ParseFunc: ParseSource},
		},
		Failure: FailureRecord,
	}
	return task
}

/*
输入响应上下文，输出解析结果

HTML页面取body中除script和style外的文本；不是HTML（如Jina返回的markdown）时使用原文
*/
func ParseSource(ctx *spider.Context) (spider.ParseResult, error) {
	content, title := ExtractText(ctx.Body)
	category := ctx.Req.Temp().GetString(spider.CategoryKey)
	now := spider.Timestamp()

	record := map[string]interface{}{
		"url":         ctx.Req.URL,
		"category":    category,
		"raw_content": content,
		"status":      200,
		"timestamp":   now,
		"structured_data": map[string]interface{}{
			"title":              title,
			"main_content":       truncate(content, mainContentChars),
			"category":           category,
			"source_url":         ctx.Req.URL,
			"extracted_patterns": processor.ExtractPatterns(content),
			"metadata": map[string]interface{}{
				"crawl_time":     now,
				"content_length": utf8.RuneCountInString(content),
			},
		},
	}
	return spider.ParseResult{Items: []interface{}{ctx.Output(record)}}, nil
}

func FailureRecord(req *spider.Request, err error) spider.ParseResult {
	record := map[string]interface{}{
		"url":       req.URL,
		"category":  req.Temp().GetString(spider.CategoryKey),
		"error":     err.Error(),
		"status":    "error",
		"timestamp": spider.Timestamp(),
	}
	cell := spider.DataCell{Task: req.Task, Data: map[string]interface{}{
		"Task": req.Task.Name,
		"Rule": req.RuleName,
		"URL":  req.URL,
		"Data": record,
	}}
	if i := req.Index(); i >= 0 {
		cell.Data["Index"] = i
	}
	return spider.ParseResult{Items: []interface{}{&cell}}
}

// 返回正文和标题
func ExtractText(body []byte) (string, string) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return string(body), ""
	}

	title := ""
	if n := htmlquery.FindOne(doc, "//title"); n != nil {
		title = strings.TrimSpace(htmlquery.InnerText(n))
	}

	// 没有任何标签时html包会补出html/body，用原文判断
	if !bytes.Contains(body, []byte("<")) {
		return string(body), title
	}

	nodes := htmlquery.Find(doc, "//body//text()[not(ancestor::script) and not(ancestor::style) and normalize-space()]")
	if len(nodes) == 0 {
		return string(body), title
	}
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, strings.TrimSpace(htmlquery.InnerText(n)))
	}
	return strings.Join(parts, "\n"), title
}

// 按分组汇总抓取记录，组内按来源顺序
func Group(srcs []Source, cells []*spider.DataCell) map[string][]map[string]interface{} {
	out := make(map[string][]map[string]interface{})
	for _, c := range cells {
		group := ""
		if i, ok := c.Data["Index"].(int); ok && i >= 0 && i < len(srcs) {
			group = srcs[i].Group
		}
		if group == "" {
			group = "其他"
		}
		out[group] = append(out[group], c.Page())
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
