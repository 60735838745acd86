package chat

import (
	"sync"

	"github.com/dszqbsm/fraudcrawler/llm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// 会话ID到对话历史，超过容量时淘汰最久未用的会话
type Sessions struct {
	mu    sync.Mutex
	cache *lru.Cache[string, []llm.Message]
}

func NewSessions(size int) (*Sessions, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, []llm.Message](size)
	if err != nil {
		return nil, err
	}
	return &Sessions{cache: c}, nil
}

// 返回副本
func (s *Sessions) History(id string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, _ := s.cache.Get(id)
	return append([]llm.Message(nil), h...)
}

// 追加消息并返回追加后的历史副本
func (s *Sessions) Append(id string, msgs ...llm.Message) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, _ := s.cache.Get(id)
	h = append(append([]llm.Message(nil), h...), msgs...)
	s.cache.Add(id, h)
	return append([]llm.Message(nil), h...)
}

func (s *Sessions) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
}

func (s *Sessions) Len() int {
	return s.cache.Len()
}
