package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TypeChain = "chain"
	TypeLLM   = "llm"
	TypeTool  = "tool"
)

// 一次运行记录，结束时整条写入账本
type Run struct {
	ID       string                 `json:"id"`
	ParentID string                 `json:"parent_id,omitempty"`
	Name     string                 `json:"name"`
	RunType  string                 `json:"run_type"`
	Inputs   map[string]interface{} `json:"inputs,omitempty"`
	Outputs  map[string]interface{} `json:"outputs,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Start    time.Time              `json:"start_time"`
	End      time.Time              `json:"end_time"`

	ledger *Ledger
}

// 只追加的JSONL账本，多个协程可以同时写入
type Ledger struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	logger *zap.Logger
}

func Open(path string, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Ledger{f: f, path: path, logger: logger}, nil
}

func (l *Ledger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

/*
输入名称、类型、输入参数和父运行，输出新的运行

账本为nil时返回nil，nil运行上的方法都是空操作，调用方不必判断是否开启了追踪
*/
func (l *Ledger) Start(name, runType string, inputs map[string]interface{}, parent *Run) *Run {
	if l == nil {
		return nil
	}
	r := &Run{
		ID:      uuid.NewString(),
		Name:    name,
		RunType: runType,
		Inputs:  inputs,
		Start:   time.Now(),
		ledger:  l,
	}
	if parent != nil {
		r.ParentID = parent.ID
	}
	return r
}

// 以当前运行为父创建子运行
func (r *Run) Child(name, runType string, inputs map[string]interface{}) *Run {
	if r == nil {
		return nil
	}
	return r.ledger.Start(name, runType, inputs, r)
}

/*
输入输出结果、元数据和错误，输出写入错误

元数据中补上elapsed（秒）
*/
func (r *Run) Finish(outputs, meta map[string]interface{}, runErr error) error {
	if r == nil {
		return nil
	}
	r.End = time.Now()
	r.Outputs = outputs
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["elapsed"] = r.End.Sub(r.Start).Seconds()
	r.Metadata = meta
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r.ledger.write(r)
}

func (l *Ledger) write(r *Run) error {
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("write trace failed", zap.String("run", r.Name), zap.Error(err))
		return err
	}
	return nil
}
