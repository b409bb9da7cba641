package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// 文档注释：IP/CIDR 白名单
// 背景：保护体积较大或内部使用的路由（完整拓扑文档、指标），其余查询路由不受影响。
// 约束：白名单为空时放行全部；来源 IP 默认取 RemoteAddr，配置 realIPHeader 时取该头的首个有效 IP
type Allowlist struct {
	l            *slog.Logger
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

// NewAllowlist 解析逗号分隔的 IP 与 CIDR 列表，非法项忽略
func NewAllowlist(l *slog.Logger, ips, cidrs, realIPHeader string) *Allowlist {
	a := &Allowlist{l: l, ips: map[string]struct{}{}, realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, p := range strings.Split(ips, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			a.ips[ip.String()] = struct{}{}
		}
	}
	for _, c := range strings.Split(cidrs, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(c); err == nil {
			a.cidrs = append(a.cidrs, n)
		}
	}
	return a
}

// Empty 表示未配置任何条目
func (a *Allowlist) Empty() bool { return len(a.ips) == 0 && len(a.cidrs) == 0 }

func (a *Allowlist) Allowed(ip net.IP) bool {
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Guard：生成中间件
func (a *Allowlist) Guard(next http.Handler) http.Handler {
	if a.Empty() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.clientIP(r)
		if ip == nil || !a.Allowed(ip) {
			a.l.Debug("allowlist_block", "remote", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Allowlist) clientIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
