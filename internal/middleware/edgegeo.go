package middleware

import (
	"context"
	"net/http"
	"strconv"

	"tzchains/internal/logger"
)

// 文档注释：边缘节点地理头
// 背景：部署在 CDN 之后时，边缘节点会把访问者坐标改写进请求头；查询时区时既没有坐标也没有 IP 参数，则使用这里的坐标。
// 约束：只读取坐标与客户端 IP；数值解析失败视为缺失
type EdgeGeo struct {
	ClientIP string
	Lat      float64
	Lon      float64
	HasCoord bool
}

type edgeGeoKey struct{}

// ParseEdgeGeo 读取 X-EO-* 头
func ParseEdgeGeo(r *http.Request) EdgeGeo {
	h := r.Header
	g := EdgeGeo{ClientIP: h.Get("X-EO-Client-IP")}
	lat, e1 := strconv.ParseFloat(h.Get("X-EO-Geo-Latitude"), 64)
	lon, e2 := strconv.ParseFloat(h.Get("X-EO-Geo-Longitude"), 64)
	if e1 == nil && e2 == nil {
		g.Lat, g.Lon, g.HasCoord = lat, lon, true
	}
	return g
}

// WithEdgeGeo 把解析结果注入请求上下文
func WithEdgeGeo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g := ParseEdgeGeo(r)
		if g.HasCoord || g.ClientIP != "" {
			logger.L().Debug("edge_geo_inject", "ip", g.ClientIP, "lat", g.Lat, "lon", g.Lon)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), edgeGeoKey{}, g)))
	})
}

// EdgeGeoFrom 取出注入的边缘地理信息
func EdgeGeoFrom(ctx context.Context) (EdgeGeo, bool) {
	g, ok := ctx.Value(edgeGeoKey{}).(EdgeGeo)
	return g, ok
}
