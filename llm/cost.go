package llm

import (
	"github.com/tiktoken-go/tokenizer"
)

// 每1K token的美元价格
type Price struct {
	Prompt     float64
	Completion float64
}

var Prices = map[string]Price{
	"gpt-4o": {Prompt: 0.01, Completion: 0.03},
	"gpt-4":  {Prompt: 0.03, Completion: 0.06},
}

// 未知模型返回0
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	p, ok := Prices[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*p.Prompt + float64(completionTokens)/1000*p.Completion
}

// 按字符（rune）截断
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}

// 截断后超过长度时追加"..."
func Sample(text string, maxChars int) string {
	t := Truncate(text, maxChars)
	if len(t) < len(text) {
		return t + "..."
	}
	return text
}

func codec(model string) tokenizer.Codec {
	if c, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return c
	}
	c, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil
	}
	return c
}

// 统计token数，编码失败时按rune数估算
func CountTokens(model, text string) int {
	c := codec(model)
	if c == nil {
		return len([]rune(text))
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return len([]rune(text))
	}
	return len(ids)
}

// 按token截断，编码失败时退回按rune截断
func TruncateTokens(model, text string, maxTokens int) string {
	c := codec(model)
	if c == nil || maxTokens <= 0 {
		return Truncate(text, maxTokens)
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return Truncate(text, maxTokens)
	}
	if len(ids) <= maxTokens {
		return text
	}
	out, err := c.Decode(ids[:maxTokens])
	if err != nil {
		return Truncate(text, maxTokens)
	}
	return out
}
