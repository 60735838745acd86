package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dszqbsm/fraudcrawler/limiter"
	"github.com/dszqbsm/fraudcrawler/trace"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var (
	ErrNoAPIKey   = errors.New("No OpenAI API key provided")
	ErrNoResponse = errors.New("OpenAI response missing content")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model        string // 为空时用客户端默认模型
	System       string
	Messages     []Message // 追加在System之后的历史对话
	Prompt       string    // 最后一条用户消息，为空时不追加
	ImageDataURL string    // 随Prompt一起发送的图片，data:image/jpeg;base64,...
	Temperature  float32
	MaxTokens    int
	JSON         bool // 要求返回json_object

	// 追踪用
	Name   string
	Parent *trace.Run
	Inputs map[string]interface{}
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// 预估费用，美元
func (r Response) Cost() float64 {
	return EstimateCost(r.Model, r.PromptTokens, r.CompletionTokens)
}

// OpenAI客户端：限速、固定次数重试，可选写入追踪账本
type Client struct {
	api   *openai.Client
	limit limiter.RateLimiter
	options
}

func New(opts ...Option) (*Client, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg := openai.DefaultConfig(options.apiKey)
	if options.baseURL != "" {
		cfg.BaseURL = options.baseURL
	}
	// HTTPClient是接口，不能直接赋值可能为nil的*http.Client
	if options.httpClient != nil {
		cfg.HTTPClient = options.httpClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: options.timeout}
	}

	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		limit:   limiter.Every(options.delay),
		options: options,
	}, nil
}

// 底层go-openai客户端，供文件上传和微调任务查询使用
func (c *Client) API() *openai.Client {
	return c.api
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Tracer() *trace.Ledger {
	return c.tracer
}

/*
输入上下文和请求，输出回复和错误

每次尝试前经过限速器；4xx（429除外）不重试，其余错误按固定间隔重试retries次
*/
func (c *Client) Chat(ctx context.Context, req Request) (Response, error) {
	creq := c.build(req)

	inputs := map[string]interface{}{"model": creq.Model, "max_tokens": req.MaxTokens}
	for k, v := range req.Inputs {
		inputs[k] = v
	}
	name := req.Name
	if name == "" {
		name = "openai_chat"
	}
	run := c.tracer.Start(name, trace.TypeLLM, inputs, req.Parent)

	resp, err := c.complete(ctx, creq)
	if err != nil {
		_ = run.Finish(nil, nil, err)
		return Response{}, err
	}

	meta := map[string]interface{}{
		"tokens": map[string]int{
			"prompt_tokens":     resp.PromptTokens,
			"completion_tokens": resp.CompletionTokens,
			"total_tokens":      resp.TotalTokens,
		},
		"cost_estimate": resp.Cost(),
	}
	_ = run.Finish(map[string]interface{}{"content": resp.Content}, meta, nil)
	return resp, nil
}

func (c *Client) build(req Request) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	switch {
	case req.ImageDataURL != "":
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: req.ImageDataURL}},
			},
		})
	case req.Prompt != "":
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	}

	creq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return creq
}

func (c *Client) complete(ctx context.Context, creq openai.ChatCompletionRequest) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying openai call",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		if err := c.limit.Wait(ctx); err != nil {
			return Response{}, err
		}

		resp, err := c.api.CreateChatCompletion(ctx, creq)
		if err != nil {
			lastErr = err
			if !retryable(err) {
				break
			}
			continue
		}
		if len(resp.Choices) == 0 {
			raw, _ := json.Marshal(resp)
			return Response{}, &NoResponseError{Raw: string(raw)}
		}
		return Response{
			Content:          resp.Choices[0].Message.Content,
			Model:            creq.Model,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}, nil
	}
	return Response{}, fmt.Errorf("openai chat: %w", lastErr)
}

func retryable(err error) bool {
	code := StatusCode(err)
	if code == 0 || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500
}

// 响应中没有choices，Raw是整个响应的JSON
type NoResponseError struct {
	Raw string
}

func (e *NoResponseError) Error() string {
	return ErrNoResponse.Error()
}

func (e *NoResponseError) Unwrap() error {
	return ErrNoResponse
}

/*
输入Chat返回的错误，输出服务端的响应内容

RequestError带有原始响应体；APIError只保留了解析后的字段，重新编码为{"error":{...}}；不是服务端错误时返回空串
*/
func ResponseBody(err error) string {
	var noResp *NoResponseError
	if errors.As(err, &noResp) {
		return noResp.Raw
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return string(reqErr.Body)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		b, mErr := json.Marshal(openai.ErrorResponse{Error: apiErr})
		if mErr != nil {
			return apiErr.Message
		}
		return string(b)
	}
	return ""
}

// 取出API错误中的HTTP状态码，不是HTTP错误时返回0
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
