package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
)

// 与http.Transport.Proxy签名一致
type ProxyFunc func(*http.Request) (*url.URL, error)

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

// 按原子递增的下标轮流选取代理
func (r *roundRobinSwitcher) GetProxy(pr *http.Request) (*url.URL, error) {
	if len(r.proxyURLs) == 0 {
		return nil, errors.New("empty proxy urls")
	}
	index := atomic.AddUint32(&r.index, 1) - 1
	u := r.proxyURLs[index%uint32(len(r.proxyURLs))]
	return u, nil
}

/*
输入一个或多个代理地址，输出轮询代理函数

地址列表为空或任一地址无法解析时返回错误
*/
func RoundRobinProxySwitcher(proxyURLs ...string) (ProxyFunc, error) {
	if len(proxyURLs) < 1 {
		return nil, errors.New("proxy url list is empty")
	}
	urls := make([]*url.URL, len(proxyURLs))
	for i, u := range proxyURLs {
		parsedU, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		urls[i] = parsedU
	}
	return (&roundRobinSwitcher{urls, 0}).GetProxy, nil
}

// 复制默认Transport并挂上代理，p为nil时沿用环境变量代理
func Transport(p ProxyFunc) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if p != nil {
		t.Proxy = p
	}
	return t
}
