package dataset

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dszqbsm/fraudcrawler/processor"
)

// 结构化数据里的字段名
const (
	keyTypes      = "詐騙類型"
	keyWarnings   = "主要的詐騙警示訊息"
	keyPrevention = "預防詐騙的建議"
	keySummary    = "網站主題摘要"
)

const correctResponse = "這是詐騙，我應該拒絕並舉報"

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var fraudWords = map[string]bool{
	"詐騙": true, "假冒": true, "投資": true, "博弈": true, "帳戶": true, "個資": true,
	"資料": true, "冒用": true, "假的": true, "騙局": true, "高報酬": true, "高獲利": true,
	"中獎": true, "退款": true, "退稅": true, "綁架": true, "勒索": true, "贖金": true,
	"緊急": true, "解除": true, "警示": true, "銀行": true, "轉帳": true, "警察": true,
	"公務員": true, "檢察官": true, "法院": true, "監管": true, "監控": true, "監視": true,
	"追蹤": true,
}

type Example struct {
	Scenario         string `json:"scenario"`
	Context          string `json:"context"`
	FraudsterMessage string `json:"fraudster_message"`
	CorrectResponse  string `json:"correct_response"`
}

// 一种诈骗类型及其说明
type FraudInfo struct {
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	Prevention    string    `json:"prevention"`
	AlertKeywords []string  `json:"alert_keywords"`
	Examples      []Example `json:"examples"`
}

// 提取文本中的诈骗相关词以及长度不少于3个字的词
func ExtractKeywords(text string) []string {
	var out []string
	for _, w := range wordRe.FindAllString(text, -1) {
		if fraudWords[w] || utf8.RuneCountInString(w) >= 3 {
			out = append(out, w)
		}
	}
	return out
}

/*
输入一条处理结果，输出其中的诈骗类型

有诈骗类型列表时每个类型一条；只有其他结构化数据时归为一般诈骗；
OpenAI未处理成功时使用网络诈骗的默认说明
*/
func ExtractFraudTypes(r processor.Result) []FraudInfo {
	if r.OpenAIProcessing == nil || !r.OpenAIProcessing.Success {
		return []FraudInfo{{
			Type:          "網路詐騙",
			Description:   "網路詐騙透過各種手法騙取個人資料或金錢",
			Prevention:    "不要輕易相信網路上的陌生人或訊息，保護個人資料，遇到可疑情況請聯繫165反詐騙專線",
			AlertKeywords: []string{"詐騙", "個資", "騙局", "錢", "緊急"},
			Examples: []Example{{
				Scenario:         "網路詐騙典型情況",
				Context:          "詐騙者透過網路騙取個人資料或金錢",
				FraudsterMessage: "這是一個網路詐騙示例信息",
				CorrectResponse:  correctResponse,
			}},
		}}
	}

	// 模型返回的不是JSON对象时当作没有内容
	data, _ := r.OpenAIProcessing.StructuredData.(map[string]interface{})
	if types, ok := data[keyTypes].([]interface{}); ok {
		desc := Text(data[keyWarnings])
		prevention := Text(data[keyPrevention])
		descWords := ExtractKeywords(desc)

		out := make([]FraudInfo, 0, len(types))
		for _, v := range types {
			name := typeName(v)
			words := append(wordRe.FindAllString(name, -1), descWords...)
			out = append(out, FraudInfo{
				Type:          name,
				Description:   desc,
				Prevention:    prevention,
				AlertKeywords: dedup(words),
				Examples: []Example{{
					Scenario:         name + "的典型情況",
					Context:          "詐騙者利用" + name + "手法進行詐騙",
					FraudsterMessage: "這是一個" + name + "的示例詐騙信息",
					CorrectResponse:  correctResponse,
				}},
			})
		}
		return out
	}

	if len(data) == 0 {
		return nil
	}
	info := FraudInfo{
		Type:          "一般詐騙",
		Description:   "未提供詳細資訊",
		Prevention:    "請保持警覺，遇到可疑情況請聯繫165反詐騙專線",
		AlertKeywords: ExtractKeywords(Text(data[keySummary])),
		Examples: []Example{{
			Scenario:         "一般詐騙情況",
			Context:          "詐騙者嘗試騙取個人資料或金錢",
			FraudsterMessage: "這是一個詐騙示例信息",
			CorrectResponse:  correctResponse,
		}},
	}
	if v, ok := data[keyWarnings]; ok {
		info.Description = Text(v)
	}
	if v, ok := data[keyPrevention]; ok {
		info.Prevention = Text(v)
	}
	return []FraudInfo{info}
}

// 按出现顺序去重，只保留多于一个字的词
func dedup(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := []string{}
	for _, w := range words {
		if seen[w] || utf8.RuneCountInString(w) <= 1 {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// 诈骗类型可能是字符串，也可能是带名称字段的对象
func typeName(v interface{}) string {
	if m, ok := v.(map[string]interface{}); ok {
		for _, k := range []string{"類型", "名稱", "type", "name"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return Text(v)
}

/*
输入结构化数据中的任意值，输出文本

列表逐项换行，对象按键排序输出"键: 值"
*/
func Text(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, Text(item))
		}
		return strings.Join(parts, "\n")
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+Text(x[k]))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(x)
	}
}
