package api

import (
	"net"
	"net/http"
	"strings"
)

// 文档注释：获取访问者 IP（按 IP 查询时区且未显式传 ip 时使用）
// 背景：多层代理环境下依次检查常见反向代理头，最后回退远端地址。
// 约束：头部可被伪造；只用于推断访问者所在时区，不用于鉴权。
func getClientIP(r *http.Request) string {
	h := r.Header
	for _, k := range []string{"x-forwarded-for", "cf-connecting-ip", "x-real-ip", "x-client-ip", "x-edge-client-ip", "x-edgeone-ip"} {
		if x := h.Get(k); x != "" {
			return strings.TrimSpace(strings.Split(x, ",")[0])
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\"[]")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
