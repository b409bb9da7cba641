package middleware

import (
	"net/http"

	"tzchains/internal/logger"

	"golang.org/x/time/rate"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：在流量峰值时对查询入口限速；桶容量等于每秒速率，允许一秒内的突发。
// 约束：不排队，超限直接返回 429；qps<=0 时不限流
func RateLimit(next http.Handler, qps int) http.Handler {
	if qps <= 0 {
		return next
	}
	lim := rate.NewLimiter(rate.Limit(qps), qps)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
