// Package llmtest 提供一个假的OpenAI chat completions服务，供各包测试使用
package llmtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// 返回状态码和回复内容，状态码非200时内容作为错误信息
type Handler func(req openai.ChatCompletionRequest) (int, string)

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

func NewServer(t *testing.T, h Handler) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		status, content := h(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"message": content, "type": "invalid_request_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500},
		})
	}))
	t.Cleanup(s.Close)
	return s
}

// 传给WithBaseURL的地址
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

func (s *Server) Requests() []openai.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), s.requests...)
}

// 固定回复
func Reply(content string) Handler {
	return func(openai.ChatCompletionRequest) (int, string) {
		return http.StatusOK, content
	}
}
