package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// 限速器接口，rate.Limiter和multiLimiter都满足
type RateLimiter interface {
	Wait(context.Context) error // 阻塞到拿到令牌或上下文取消
	Limit() rate.Limit
}

// 把多个限速器按速率从小到大排序后组合，Wait时依次等待每一个
func Multi(limiters ...RateLimiter) *multiLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &multiLimiter{limiters: limiters}
}

type multiLimiter struct {
	limiters []RateLimiter
}

func (l *multiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// 返回最严格的那个速率
func (l *multiLimiter) Limit() rate.Limit {
	return l.limiters[0].Limit()
}

// duration内允许eventCount个事件
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

/*
输入一个最小间隔，输出一个限速器

桶大小为1，第一次调用立即放行，之后两次调用之间至少间隔delay；delay<=0时不限速
*/
func Every(delay time.Duration) RateLimiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
