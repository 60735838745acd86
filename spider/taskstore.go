package spider

import (
	"fmt"
	"sync"

	"github.com/robertkrimen/otto"
)

// 全局任务仓库，tasklib在init中注册
var TaskStore = NewTaskStore()

type taskStore struct {
	mu   sync.RWMutex
	List []*Task
	Hash map[string]*Task
}

func NewTaskStore() *taskStore {
	return &taskStore{
		List: []*Task{},
		Hash: map[string]*Task{},
	}
}

func (c *taskStore) Add(task *Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Hash[task.Name]; !ok {
		c.List = append(c.List, task)
	}
	c.Hash[task.Name] = task
}

func (c *taskStore) Get(name string) (*Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.Hash[name]
	return t, ok
}

/*
输入一个JS任务模板，无输出

Root脚本在otto虚拟机中执行，可调用Go函数AddJsReq生成种子请求；每条规则脚本执行时注入ctx，返回值必须是ParseResult
*/
func (c *taskStore) AddJSTask(m *TaskModle) {
	task := &Task{
		Options: m.Options,
	}
	if task.logger == nil {
		task.logger = defaultOptions.logger
	}

	task.Rule.Root = func() ([]*Request, error) {
		vm := otto.New()
		if err := vm.Set("AddJsReq", AddJsReqs); err != nil {
			return nil, err
		}

		v, err := vm.Eval(m.Root)
		if err != nil {
			return nil, err
		}

		e, err := v.Export()
		if err != nil {
			return nil, err
		}

		reqs, ok := e.([]*Request)
		if !ok {
			return nil, fmt.Errorf("root script of %s returned %T", m.Name, e)
		}
		return reqs, nil
	}

	task.Rule.Trunk = make(map[string]*Rule, len(m.Rules))
	for _, r := range m.Rules {
		parseFunc := func(parse string) func(ctx *Context) (ParseResult, error) {
			return func(ctx *Context) (ParseResult, error) {
				vm := otto.New()
				if err := vm.Set("ctx", ctx); err != nil {
					return ParseResult{}, err
				}

				v, err := vm.Eval(parse)
				if err != nil {
					return ParseResult{}, err
				}

				e, err := v.Export()
				if err != nil {
					return ParseResult{}, err
				}
				if e == nil {
					return ParseResult{}, nil
				}

				result, ok := e.(ParseResult)
				if !ok {
					return ParseResult{}, fmt.Errorf("rule script returned %T", e)
				}
				return result, nil
			}
		}(r.ParseFunc)

		task.Rule.Trunk[r.Name] = &Rule{
			ItemFields: r.ItemFields,
			ParseFunc:  parseFunc,
		}
	}
	task.Rule.Failure = FailurePage

	c.Add(task)
}

// 把JS中的请求描述转换为Request，URL缺失的条目被丢弃
func AddJsReqs(jreqs []map[string]interface{}) []*Request {
	reqs := make([]*Request, 0, len(jreqs))

	for _, jreq := range jreqs {
		u, ok := jreq["URL"].(string)
		if !ok {
			if u, ok = jreq["Url"].(string); !ok {
				continue
			}
		}

		req := &Request{URL: u}
		req.RuleName, _ = jreq["RuleName"].(string)
		req.Method, _ = jreq["Method"].(string)
		if req.Method == "" {
			req.Method = "GET"
		}
		req.Priority = toInt(jreq["Priority"])
		reqs = append(reqs, req)
	}

	return reqs
}

func AddJsReq(jreq map[string]interface{}) []*Request {
	return AddJsReqs([]map[string]interface{}{jreq})
}

// otto导出的数字可能是float64或int64
func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// 任务某条规则的输出字段
func GetFields(taskName string, ruleName string) []string {
	t, ok := TaskStore.Get(taskName)
	if !ok {
		return nil
	}
	r, ok := t.Rule.Trunk[ruleName]
	if !ok {
		return nil
	}
	return r.ItemFields
}
