package storage

import (
	"sort"
	"sync"

	"github.com/dszqbsm/fraudcrawler/spider"
	"go.uber.org/multierr"
)

// 内存中收集抓取结果，引擎结束后按种子顺序取出
type Collector struct {
	mu    sync.Mutex
	cells []*spider.DataCell
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Save(cells ...*spider.DataCell) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells = append(c.cells, cells...)
	return nil
}

// 按Index稳定排序，没有Index的排在最后
func (c *Collector) Cells() []*spider.DataCell {
	c.mu.Lock()
	out := append([]*spider.DataCell(nil), c.cells...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return index(out[i]) < index(out[j])
	})
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cells)
}

func index(c *spider.DataCell) int {
	if i, ok := c.Data["Index"].(int); ok && i >= 0 {
		return i
	}
	return int(^uint(0) >> 1)
}

// 同时写入多个存储，错误合并返回
type Multi []spider.DataRepository

func (m Multi) Save(cells ...*spider.DataCell) error {
	var errs error
	for _, r := range m {
		if r == nil {
			continue
		}
		errs = multierr.Append(errs, r.Save(cells...))
	}
	return errs
}
