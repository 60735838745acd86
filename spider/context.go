package spider

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ISO 8601，微秒精度，不带时区
const TimeLayout = "2006-01-02T15:04:05.000000"

func Timestamp() string {
	return time.Now().Format(TimeLayout)
}

// 解析函数的输入：响应内容和当前请求
type Context struct {
	Body []byte
	Req  *Request
}

func (c *Context) GetRule(ruleName string) *Rule {
	return c.Req.Task.Rule.Trunk[ruleName]
}

/*
输入解析出的数据，输出数据单元

附带任务名、规则名、URL和抓取时间，sqlstorage据此建表和写入
*/
func (c *Context) Output(data interface{}) *DataCell {
	return output(c.Req, data)
}

func output(req *Request, data interface{}) *DataCell {
	res := &DataCell{
		Task: req.Task,
	}
	res.Data = make(map[string]interface{})
	res.Data["Task"] = req.Task.Name
	res.Data["Rule"] = req.RuleName
	res.Data["Data"] = data
	res.Data["URL"] = req.URL
	res.Data["Time"] = time.Now().Format("2006-01-02 15:04:05")
	if i := req.Index(); i >= 0 {
		res.Data["Index"] = i
	}
	return res
}

// 用正则第一个分组作为新请求的URL，name为新请求的规则名
func (c *Context) ParseJSReg(name string, reg string) ParseResult {
	re := regexp.MustCompile(reg)

	matches := re.FindAllSubmatch(c.Body, -1)
	result := ParseResult{}

	for _, m := range matches {
		u := string(m[1])
		result.Requests = append(
			result.Requests, &Request{
				Method:   "GET",
				Task:     c.Req.Task,
				URL:      u,
				Depth:    c.Req.Depth + 1,
				RuleName: name,
			})
	}
	return result
}

// 响应内容匹配正则时输出当前URL
func (c *Context) OutputJS(reg string) ParseResult {
	re := regexp.MustCompile(reg)
	if ok := re.Match(c.Body); !ok {
		return ParseResult{
			Items: []interface{}{},
		}
	}
	return ParseResult{
		Items: []interface{}{c.Req.URL},
	}
}

// 页面数据的字段，建表时也按这个顺序
var PageFields = []string{"url", "jina_url", "success", "title", "content", "error", "category", "timestamp"}

/*
无输入，输出一个解析结果

把整页内容作为一条抓取记录输出，标题取HTML的title，没有时退回Jina JSON中的data.title
*/
func (c *Context) OutputPage() ParseResult {
	page := map[string]interface{}{
		"url":       c.Req.URL,
		"success":   true,
		"title":     PageTitle(c.Body),
		"content":   string(c.Body),
		"timestamp": Timestamp(),
	}
	if c.Req.TmpData != nil {
		if u := c.Req.TmpData.GetString(JinaURLKey); u != "" {
			page["jina_url"] = u
		}
		if cat := c.Req.TmpData.GetString(CategoryKey); cat != "" {
			page["category"] = cat
		}
	}
	return ParseResult{Items: []interface{}{c.Output(page)}}
}

// 请求最终失败时的抓取记录
func FailurePage(req *Request, err error) ParseResult {
	page := map[string]interface{}{
		"url":       req.URL,
		"success":   false,
		"error":     err.Error(),
		"timestamp": Timestamp(),
	}
	if req.TmpData != nil {
		if u := req.TmpData.GetString(JinaURLKey); u != "" {
			page["jina_url"] = u
		}
		if cat := req.TmpData.GetString(CategoryKey); cat != "" {
			page["category"] = cat
		}
	}
	return ParseResult{Items: []interface{}{output(req, page)}}
}

// 提取页面标题，解析失败返回"Parse failure"，没有标题返回"No title"
func PageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "Parse failure"
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	var jr struct {
		Data struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &jr); err == nil && jr.Data.Title != "" {
		return jr.Data.Title
	}
	return "No title"
}
