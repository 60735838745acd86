package jina

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/dszqbsm/fraudcrawler/limiter"
	"github.com/dszqbsm/fraudcrawler/proxy"
	"github.com/dszqbsm/fraudcrawler/spider"
	"go.uber.org/zap"
)

var ErrNoAPIKey = errors.New("no Jina API key provided")

// Jina返回非200状态码
type StatusError struct {
	Code    int
	JinaURL string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Jina API returned status code: %d", e.Code)
}

// Jina Reader客户端，同时实现spider.Fetcher
type Client struct {
	limit    limiter.RateLimiter
	client   *http.Client
	insecure *http.Client
	requests int64
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

	c := &Client{options: options}
	c.limit = limiter.Every(options.delay)
	c.client = options.httpClient
	if c.client == nil {
		c.client = &http.Client{Timeout: options.timeout}
	}
	if options.insecureFallback {
		tr := proxy.Transport(nil)
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		c.insecure = &http.Client{Timeout: options.timeout, Transport: tr}
	}
	return c, nil
}

// Reader地址，目标URL原样拼接
func (c *Client) ReaderURL(target string) string {
	return c.readerURL + target
}

/*
输入上下文和目标URL，输出Jina返回的内容和错误

请求前经过限速器，非200状态码返回*StatusError
*/
func (c *Client) Read(ctx context.Context, target string) ([]byte, error) {
	return c.get(ctx, c.ReaderURL(target))
}

// 调用s.jina.ai搜索
func (c *Client) Search(ctx context.Context, query string) ([]byte, error) {
	return c.get(ctx, c.searchURL+url.PathEscape(query))
}

// 调用g.jina.ai做事实核查
func (c *Client) Ground(ctx context.Context, statement string) ([]byte, error) {
	return c.get(ctx, c.groundURL+url.PathEscape(statement))
}

func (c *Client) get(ctx context.Context, jinaURL string) ([]byte, error) {
	if err := c.limit.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, c.client, jinaURL)
	if err != nil && c.insecure != nil && isTLSError(err) {
		c.logger.Warn("tls verification failed, retrying without verification",
			zap.String("url", jinaURL), zap.Error(err))
		body, err = c.do(ctx, c.insecure, jinaURL)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, client *http.Client, jinaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jinaURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	atomic.AddInt64(&c.requests, 1)

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("jina api error", zap.Int("status", resp.StatusCode), zap.String("url", jinaURL))
		return nil, &StatusError{Code: resp.StatusCode, JinaURL: jinaURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read jina response: %w", err)
	}
	c.logger.Info("retrieved content", zap.String("url", jinaURL), zap.Int("length", len(body)))
	return body, nil
}

func isTLSError(err error) bool {
	var (
		verr  *tls.CertificateVerificationError
		uae   x509.UnknownAuthorityError
		hoste x509.HostnameError
		inv   x509.CertificateInvalidError
	)
	return errors.As(err, &verr) || errors.As(err, &uae) || errors.As(err, &hoste) || errors.As(err, &inv)
}

/*
输入上下文和请求，输出内容和错误

供爬虫引擎使用，把Jina地址写入请求的临时数据；网络层失败时清掉该地址，失败记录里不带jina_url
*/
func (c *Client) Get(ctx context.Context, req *spider.Request) ([]byte, error) {
	jinaURL := c.ReaderURL(req.URL)
	_ = req.Temp().Set(spider.JinaURLKey, jinaURL)

	body, err := c.Read(ctx, req.URL)
	if err != nil {
		var se *StatusError
		if !errors.As(err, &se) {
			_ = req.Temp().Set(spider.JinaURLKey, "")
		}
		return nil, err
	}
	return body, nil
}

// 已发出的请求数
func (c *Client) Requests() int64 {
	return atomic.LoadInt64(&c.requests)
}
