package spider

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dszqbsm/fraudcrawler/extensions"
	"github.com/dszqbsm/fraudcrawler/proxy"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type FetchType int

const (
	BaseFetchType FetchType = iota
	BrowserFetchType
	RodFetchType
)

type Fetcher interface {
	// 抓取请求对应的页面，返回UTF-8编码的内容
	Get(ctx context.Context, req *Request) ([]byte, error)
}

// 按类型创建直连采集器，Jina采集器由jina包提供
func NewFetchService(typ FetchType, timeout time.Duration, p proxy.ProxyFunc, logger *zap.Logger) Fetcher {
	switch typ {
	case BaseFetchType:
		return &BaseFetch{Timeout: timeout}
	case RodFetchType:
		return &RodFetch{Timeout: timeout, Logger: logger}
	default:
		return &BrowserFetch{Timeout: timeout, Proxy: p, Logger: logger}
	}
}

// 最简单的GET，只做状态码检查和编码转换
type BaseFetch struct {
	Timeout time.Duration
}

func (b *BaseFetch) Get(ctx context.Context, req *Request) ([]byte, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("get url failed: %w", err)
	}

	client := &http.Client{Timeout: b.Timeout}
	resp, err := client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error status code: %d", resp.StatusCode)
	}

	return readUTF8(resp.Body)
}

/*
模拟浏览器的GET请求

设置代理、随机User-Agent和任务Cookie，响应做编码检测后转为UTF-8
*/
type BrowserFetch struct {
	Timeout time.Duration
	Proxy   proxy.ProxyFunc
	Logger  *zap.Logger
}

func (b *BrowserFetch) Get(ctx context.Context, request *Request) ([]byte, error) {
	timeout := b.Timeout
	if request.Task != nil && request.Task.Timeout > 0 {
		timeout = request.Task.Timeout
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: proxy.Transport(b.Proxy),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, request.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("get url failed: %w", err)
	}

	if request.Task != nil && len(request.Task.Cookie) > 0 {
		req.Header.Set("Cookie", request.Task.Cookie)
	}
	req.Header.Set("User-Agent", extensions.GenerateRandomUA())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error status code: %d", resp.StatusCode)
	}

	return readUTF8(resp.Body)
}

func readUTF8(r io.Reader) ([]byte, error) {
	bodyReader := bufio.NewReader(r)
	e := DeterminEncoding(bodyReader)
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())
	return io.ReadAll(utf8Reader)
}

// 根据前1024字节推断编码，读不到时按UTF-8处理
func DeterminEncoding(r *bufio.Reader) encoding.Encoding {
	bytes, err := r.Peek(1024)
	if err != nil && len(bytes) == 0 {
		if err != io.EOF {
			zap.L().Error("fetch failed", zap.Error(err))
		}
		return unicode.UTF8
	}

	e, _, _ := charset.DetermineEncoding(bytes, "")
	return e
}

// 先用Primary抓取，失败后改用Fallback
type FallbackFetch struct {
	Primary  Fetcher
	Fallback Fetcher
	Logger   *zap.Logger
}

func (f *FallbackFetch) Get(ctx context.Context, req *Request) ([]byte, error) {
	body, err := f.Primary.Get(ctx, req)
	if err == nil || f.Fallback == nil {
		return body, err
	}
	if f.Logger != nil {
		f.Logger.Warn("primary fetch failed, using fallback",
			zap.String("url", req.URL), zap.Error(err))
	}
	return f.Fallback.Get(ctx, req)
}
