// 包 api：时区查询服务的 HTTP 路由
package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"tzchains/internal/cache"
	"tzchains/internal/coordsys"
	"tzchains/internal/geom"
	"tzchains/internal/ipgeo"
	"tzchains/internal/logger"
	"tzchains/internal/metrics"
	"tzchains/internal/middleware"
	"tzchains/internal/serialize"
	"tzchains/internal/topology"

	gojson "github.com/goccy/go-json"
	geojson "github.com/paulmach/go.geojson"
)

// Service：查询服务依赖；Cache 与 Locator 可为空
type Service struct {
	Topology *topology.Topology
	Cache    cache.ZoneCache
	Locator  ipgeo.Locator

	index *topology.Index
	doc   []byte
}

// NewService 预先序列化文档，供 /topology 与缓存指纹使用
func NewService(t *topology.Topology, zc cache.ZoneCache, loc ipgeo.Locator) (*Service, error) {
	doc, err := serialize.Marshal(t)
	if err != nil {
		return nil, err
	}
	return &Service{Topology: t, Cache: zc, Locator: loc, index: topology.NewIndex(t), doc: doc}, nil
}

// Document 返回序列化后的文档
func (s *Service) Document() []byte { return s.doc }

// zoneResult：/zone 的返回结构
type zoneResult struct {
	Zone   string  `json:"zone"`
	Found  bool    `json:"found"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	IP     string  `json:"ip,omitempty"`
	Source string  `json:"source"`
}

type errorResult struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = gojson.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResult{Error: msg})
}

// 文档注释：构建并返回 API 路由
// 背景：独立 ServeMux，由主入口挂载到 API_BASE 前缀；guard 包裹体积较大或内部使用的路由。
func BuildRoutes(s *Service, guard func(http.Handler) http.Handler) *http.ServeMux {
	if guard == nil {
		guard = func(h http.Handler) http.Handler { return h }
	}
	mux := http.NewServeMux()
	mux.Handle("/zone", timed("zone", http.HandlerFunc(s.handleZone)))
	mux.Handle("/polygons", timed("polygons", http.HandlerFunc(s.handlePolygons)))
	mux.Handle("/tile", timed("tile", http.HandlerFunc(s.handleTile)))
	mux.Handle("/stats", timed("stats", http.HandlerFunc(s.handleStats)))
	mux.Handle("/topology", guard(timed("topology", http.HandlerFunc(s.handleTopology))))
	mux.Handle("/metrics", guard(metrics.Handler()))
	return mux
}

func timed(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		metrics.LookupRequestsTotal.WithLabelValues(route).Inc()
		next.ServeHTTP(w, r)
		metrics.LookupDurationMs.WithLabelValues(route).Observe(float64(time.Since(begin).Milliseconds()))
	})
}

// 文档注释：按坐标或 IP 查询所在时区
// 背景：优先 lat/lon 参数；其次 ip 参数；再次边缘节点注入的坐标；最后按访问者 IP 定位。
// 约束：lat 必须在 [-90, 90]，lon 任意有限值（按 360 度取模）；coord 参数（gcj02/bd09）只作用于 lat/lon，
// 换算后的 WGS84 坐标写入结果与缓存键；IP 定位需要配置 mmdb。
func (s *Service) handleZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	var res zoneResult
	var key string
	switch {
	case q.Get("lat") != "" || q.Get("lon") != "":
		lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
		lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
		if err1 != nil || err2 != nil || !validCoord(lat, lon) {
			badRequest(w, "lat and lon must be numbers, lat within [-90, 90]")
			return
		}
		lat, lon, err := coordsys.ToWGS84(q.Get("coord"), lat, lon)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		res = zoneResult{Lat: lat, Lon: lon, Source: "query"}
		key = cache.CoordKey(lat, lon)
	case q.Get("ip") != "":
		res = zoneResult{IP: q.Get("ip"), Source: "ip"}
		key = cache.IPKey(res.IP)
	default:
		if g, ok := middleware.EdgeGeoFrom(ctx); ok && g.HasCoord && validCoord(g.Lat, g.Lon) {
			res = zoneResult{Lat: g.Lat, Lon: g.Lon, IP: g.ClientIP, Source: "edge"}
			key = cache.CoordKey(g.Lat, g.Lon)
		} else {
			res = zoneResult{IP: getClientIP(r), Source: "visitor"}
			key = cache.IPKey(res.IP)
		}
	}

	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, key); ok {
			var cached zoneResult
			if err := gojson.Unmarshal([]byte(v), &cached); err == nil {
				metrics.LookupCacheHitsTotal.Inc()
				cached.Source = res.Source
				writeJSON(w, http.StatusOK, cached)
				return
			}
		}
		metrics.LookupCacheMissesTotal.Inc()
	}

	if res.Source == "ip" || res.Source == "visitor" {
		if s.Locator == nil {
			writeJSON(w, http.StatusNotImplemented, errorResult{Error: "ip lookup not configured"})
			return
		}
		lat, lon, err := s.Locator.Locate(res.IP)
		switch {
		case errors.Is(err, ipgeo.ErrBadIP):
			badRequest(w, err.Error())
			return
		case errors.Is(err, ipgeo.ErrNoLocation):
			writeJSON(w, http.StatusOK, res)
			return
		case err != nil:
			logger.L().Error("ip_locate_error", "ip", res.IP, "err", err)
			writeJSON(w, http.StatusInternalServerError, errorResult{Error: "ip lookup failed"})
			return
		}
		res.Lat, res.Lon = lat, lon
	}

	res.Zone, res.Found = s.index.ZoneAt(res.Lat, res.Lon)
	logger.L().Debug("zone_lookup", "lat", res.Lat, "lon", res.Lon, "ip", res.IP, "zone", res.Zone, "source", res.Source)
	if s.Cache != nil {
		if b, err := gojson.Marshal(res); err == nil {
			s.Cache.Set(ctx, key, string(b))
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && !math.IsInf(lon, 0) && !math.IsNaN(lon)
}

// 文档注释：返回若干区域合并后的轮廓（GeoJSON FeatureCollection）
// 背景：所选区域之间的公共边界相互抵消，只剩外轮廓与洞；每个环输出为一个 Polygon 要素。
// 约束：zone 参数为逗号分隔的区域标识，至少一个；未知区域返回 404
func (s *Service) handlePolygons(w http.ResponseWriter, r *http.Request) {
	zones := zoneList(r.URL.Query().Get("zone"))
	if len(zones) == 0 {
		badRequest(w, "zone is required")
		return
	}
	rings, err := s.Topology.PolygonsFor(zones)
	if err != nil {
		if errors.Is(err, topology.ErrUnknownZone) {
			writeJSON(w, http.StatusNotFound, errorResult{Error: err.Error()})
			return
		}
		logger.L().Error("polygons_error", "zones", zones, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResult{Error: err.Error()})
		return
	}
	fc := geojson.NewFeatureCollection()
	for i, ring := range rings {
		f := geojson.NewPolygonFeature([][][]float64{ringCoords(ring)})
		f.SetProperty("zones", strings.Join(zones, ","))
		f.SetProperty("ring", i)
		fc.AddFeature(f)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResult{Error: err.Error()})
		return
	}
	w.Header().Set("content-type", "application/geo+json; charset=utf-8")
	_, _ = w.Write(b)
}

// zoneList 解析逗号分隔的区域标识，忽略空项
func zoneList(v string) []string {
	var zones []string
	for _, z := range strings.Split(v, ",") {
		if z = strings.TrimSpace(z); z != "" {
			zones = append(zones, z)
		}
	}
	return zones
}

func ringCoords(r geom.Ring) [][]float64 {
	out := make([][]float64, len(r))
	for i, p := range r {
		out[i] = []float64{p.Lon, p.Lat}
	}
	return out
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.Topology.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"zones":         st.Zones,
		"rings":         st.Rings,
		"chains":        st.Chains,
		"points":        st.Points,
		"refs":          st.Refs,
		"shared_chains": st.SharedChains,
		"fingerprint":   cache.Fingerprint(s.doc),
	})
}

func (s *Service) handleTopology(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("etag", `"`+cache.Fingerprint(s.doc)+`"`)
	_, _ = w.Write(s.doc)
}
