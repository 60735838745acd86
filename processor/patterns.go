package processor

import (
	"regexp"
	"strings"
)

var (
	phoneRe = regexp.MustCompile(`\b(?:\+?886|0)[-\s]?[2-9](?:[-\s]?\d{1,4}){2,3}\b`)
	lineRe  = regexp.MustCompile(`LINE[:\s]*(ID)?[:\s]*([a-zA-Z0-9_\-.]+)`)
	urlRe   = regexp.MustCompile(`https?://[^\s)"']+`)
)

// 统计出现次数的诈骗关键词，顺序即输出顺序
var FraudKeywords = []string{"詐騙", "假投資", "假冒", "詐欺"}

type Patterns struct {
	PhoneNumbers  []string       `json:"phone_numbers"`
	LineIDs       []string       `json:"line_ids"`
	URLs          []string       `json:"urls"`
	FraudKeywords map[string]int `json:"fraud_keywords"`
}

// 从内容中提取电话、LINE ID、链接和诈骗关键词次数
func ExtractPatterns(content string) Patterns {
	p := Patterns{
		PhoneNumbers:  phoneRe.FindAllString(content, -1),
		URLs:          urlRe.FindAllString(content, -1),
		FraudKeywords: make(map[string]int, len(FraudKeywords)),
	}
	if p.PhoneNumbers == nil {
		p.PhoneNumbers = []string{}
	}
	if p.URLs == nil {
		p.URLs = []string{}
	}

	p.LineIDs = []string{}
	for _, m := range lineRe.FindAllStringSubmatch(content, -1) {
		if m[2] != "" {
			p.LineIDs = append(p.LineIDs, m[2])
		} else {
			p.LineIDs = append(p.LineIDs, m[1])
		}
	}

	for _, k := range FraudKeywords {
		p.FraudKeywords[k] = strings.Count(content, k)
	}
	return p
}
