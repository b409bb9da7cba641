// 包 ipgeo：把 IP 解析为经纬度，供按 IP 查询时区使用
package ipgeo

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
)

var (
	// ErrBadIP 表示输入不是合法 IP
	ErrBadIP = errors.New("invalid ip")
	// ErrNoLocation 表示库中没有该 IP 的坐标
	ErrNoLocation = errors.New("no location for ip")
)

// Locator：IP → (lat, lon)
type Locator interface {
	Locate(ip string) (lat, lon float64, err error)
	Close() error
}

// Open 按模式打开 mmdb；mode 为 geoip2（默认）或 raw
func Open(path, mode string) (Locator, error) {
	switch mode {
	case "", "geoip2":
		return OpenGeoIP2(path)
	case "raw":
		return OpenRaw(path)
	default:
		return nil, fmt.Errorf("unknown mmdb mode %q", mode)
	}
}

func parseIP(s string) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("%w: %q", ErrBadIP, s)
	}
	return ip, nil
}

// GeoIP2Locator：GeoLite2/GeoIP2 City 库
type GeoIP2Locator struct {
	r *geoip2.Reader
}

func OpenGeoIP2(path string) (*GeoIP2Locator, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP2Locator{r: r}, nil
}

func (g *GeoIP2Locator) Locate(s string) (float64, float64, error) {
	ip, err := parseIP(s)
	if err != nil {
		return 0, 0, err
	}
	rec, err := g.r.City(ip)
	if err != nil {
		return 0, 0, err
	}
	loc := rec.Location
	if loc.Latitude == 0 && loc.Longitude == 0 && loc.AccuracyRadius == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoLocation, s)
	}
	return loc.Latitude, loc.Longitude, nil
}

func (g *GeoIP2Locator) Close() error { return g.r.Close() }

// RawLocator：只解码 location 字段的通用 mmdb 读取，适用于非 City 结构但带坐标的库
type RawLocator struct {
	r *maxminddb.Reader
}

type rawRecord struct {
	Location struct {
		Latitude  *float64 `maxminddb:"latitude"`
		Longitude *float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

func OpenRaw(path string) (*RawLocator, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &RawLocator{r: r}, nil
}

func (m *RawLocator) Locate(s string) (float64, float64, error) {
	ip, err := parseIP(s)
	if err != nil {
		return 0, 0, err
	}
	var rec rawRecord
	_, ok, err := m.r.LookupNetwork(ip, &rec)
	if err != nil {
		return 0, 0, err
	}
	if !ok || rec.Location.Latitude == nil || rec.Location.Longitude == nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoLocation, s)
	}
	return *rec.Location.Latitude, *rec.Location.Longitude, nil
}

func (m *RawLocator) Close() error { return m.r.Close() }

// Static：固定映射，用于测试与离线演示
type Static map[string][2]float64

func (s Static) Locate(ip string) (float64, float64, error) {
	if net.ParseIP(ip) == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadIP, ip)
	}
	v, ok := s[ip]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoLocation, ip)
	}
	return v[0], v[1], nil
}

func (s Static) Close() error { return nil }
