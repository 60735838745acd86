package spider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// 用无头浏览器渲染页面，165网站是hash路由的单页应用，直连只能拿到空壳
type RodFetch struct {
	Bin     string // 浏览器路径，为空时由launcher下载或查找
	Timeout time.Duration
	Logger  *zap.Logger

	once    sync.Once
	browser *rod.Browser
	err     error
}

func (r *RodFetch) connect() error {
	r.once.Do(func() {
		l := launcher.New().Headless(true)
		if r.Bin != "" {
			l = l.Bin(r.Bin)
		}
		controlURL, err := l.Launch()
		if err != nil {
			r.err = fmt.Errorf("launch browser: %w", err)
			return
		}
		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			r.err = fmt.Errorf("connect browser: %w", err)
			return
		}
		r.browser = b
	})
	return r.err
}

func (r *RodFetch) Get(ctx context.Context, req *Request) ([]byte, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	b := r.browser.Context(ctx)
	if r.Timeout > 0 {
		b = b.Timeout(r.Timeout)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: req.URL})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil && r.Logger != nil {
			r.Logger.Warn("close page failed", zap.Error(err))
		}
	}()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func (r *RodFetch) Close() error {
	if r.browser == nil {
		return nil
	}
	return r.browser.Close()
}
