// Package chat 用微调后的模型回答詐騙相关问题，提供网页、命令行和批量测试三种入口
package chat

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dszqbsm/fraudcrawler/dataset"
	"github.com/dszqbsm/fraudcrawler/llm"
	"go.uber.org/zap"
)

// 批量测试用的问题
var TestCases = []string{
	"最近收到一封email說我中獎了，要我提供銀行帳號領獎金，這是真的嗎？",
	"有人說他是我遠房親戚，急需借錢，要我轉帳給他，我該怎麼辦？",
	"接到自稱是警察的電話，說我涉及洗錢案件，要我配合調查，這是詐騙嗎？",
}

type Assistant struct {
	client *llm.Client
	options
}

// client为nil时每次回复都是错误信息
func NewAssistant(client *llm.Client, opts ...Option) *Assistant {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Assistant{client: client, options: options}
}

/*
输入上下文和对话历史，输出助手回复

历史的最后一条应是用户消息；调用失败时返回"發生錯誤: "开头的文字而不是错误
*/
func (a *Assistant) Reply(ctx context.Context, history []llm.Message) string {
	reply, err := a.complete(ctx, history)
	if err != nil {
		return errorText(err)
	}
	return reply
}

func errorText(err error) string {
	return "發生錯誤: " + err.Error()
}

func (a *Assistant) complete(ctx context.Context, history []llm.Message) (string, error) {
	if a.client == nil {
		return "", llm.ErrNoAPIKey
	}
	resp, err := a.client.Chat(ctx, llm.Request{
		Model:       a.model,
		System:      dataset.AssistantPrompt,
		Messages:    history,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Name:        "chat_reply",
	})
	if err != nil {
		a.logger.Warn("chat completion failed", zap.Error(err))
		return "", err
	}
	return resp.Content, nil
}

// 单轮问答
func (a *Assistant) Ask(ctx context.Context, question string) string {
	return a.Reply(ctx, []llm.Message{{Role: "user", Content: question}})
}

// 依次提问，问题和回答写到w
func (a *Assistant) RunTests(ctx context.Context, w io.Writer, cases []string) error {
	if _, err := fmt.Fprint(w, "開始測試fine-tuned模型...\n\n"); err != nil {
		return err
	}
	for i, q := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		answer := a.Ask(ctx, q)
		_, err := fmt.Fprintf(w, "測試案例 %d:\n問題: %s\n回答: %s\n\n%s\n\n", i+1, q, answer, strings.Repeat("-", 80))
		if err != nil {
			return err
		}
	}
	return nil
}
