package spider

import "sync"

// 请求级临时数据的常用键
const (
	IndexKey    = "index"
	CategoryKey = "category"
	JinaURLKey  = "jina_url"
)

type Temper interface {
	Get(key string) interface{}
	Set(key string, value interface{}) error
}

// 跟随请求传递的临时数据，采集器和解析规则可以并发读写
type Temp struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

func (t *Temp) Get(key string) interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.data[key]
}

func (t *Temp) Set(key string, value interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.data == nil {
		t.data = make(map[string]interface{}, 8)
	}
	t.data[key] = value
	return nil
}

func (t *Temp) GetString(key string) string {
	s, _ := t.Get(key).(string)
	return s
}
