package spider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"math/rand"
	"strconv"
	"time"
)

// 一次解析的结果
type ParseResult struct {
	Requests []*Request    // 新发现的请求
	Items    []interface{} // 提取出的数据
}

// 一个待抓取的请求
type Request struct {
	Task     *Task
	URL      string
	Method   string
	Depth    int
	Priority int // 大于0进入优先队列
	RuleName string
	TmpData  *Temp
}

var ErrMaxDepth = errors.New("max depth limit reached")

// 检查是否超过任务的最大深度
func (r *Request) Check() error {
	if r.Depth > r.Task.MaxDepth {
		return ErrMaxDepth
	}
	return nil
}

// 请求的去重标识，md5(url+method)；带种子位置的请求再加上位置，列表中重复的URL各抓一次
func (r *Request) Unique() string {
	key := r.URL + r.Method
	if i := r.Index(); i >= 0 {
		key += "#" + strconv.Itoa(i)
	}
	block := md5.Sum([]byte(key))
	return hex.EncodeToString(block[:])
}

/*
输入上下文，输出响应内容和错误

先经过任务限速器，再在WaitTime内随机休眠，最后交给任务的采集器
*/
func (r *Request) Fetch(ctx context.Context) ([]byte, error) {
	if r.Task.Limit != nil {
		if err := r.Task.Limit.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if r.Task.WaitTime > 0 {
		sleeptime := time.Duration(rand.Int63n(r.Task.WaitTime*1000)) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleeptime):
		}
	}

	if r.Task.Fetcher == nil {
		return nil, errors.New("task has no fetcher")
	}

	return r.Task.Fetcher.Get(ctx, r)
}

// 种子顺序，用于结果按输入顺序排列
func (r *Request) Index() int {
	if r.TmpData == nil {
		return -1
	}
	if i, ok := r.TmpData.Get(IndexKey).(int); ok {
		return i
	}
	return -1
}

// 懒初始化的临时数据
func (r *Request) Temp() *Temp {
	if r.TmpData == nil {
		r.TmpData = &Temp{}
	}
	return r.TmpData
}
