package processor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

/*
输入原始抓取内容，输出纯文本

JSON中有data.content时直接返回；其他JSON原样返回；否则按HTML解析，依次尝试<p>段落、body文本，body没有文字时取整个文档的文本
*/
func ParseContent(content string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err == nil {
		if obj, ok := raw.(map[string]interface{}); ok {
			if data, ok := obj["data"].(map[string]interface{}); ok {
				if c, ok := data["content"]; ok {
					if s, ok := c.(string); ok {
						return s
					}
					b, _ := json.Marshal(c)
					return string(b)
				}
			}
		}
		logger.Warn("could not find content in JSON structure")
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}

	if ps := doc.Find("p"); ps.Length() > 0 {
		texts := make([]string, 0, ps.Length())
		ps.Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, s.Text())
		})
		return strings.Join(texts, "\n\n")
	}

	// 解析器总会补出<body>，文字都在<head>里时body为空
	if text := nodeText(doc.Find("body"), "\n\n"); strings.TrimSpace(text) != "" {
		return text
	}
	return nodeText(doc.Selection, "\n\n")
}

// 各文本节点之间用sep连接
func nodeText(s *goquery.Selection, sep string) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if t := c.Text(); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if t := nodeText(c, sep); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, sep)
}
