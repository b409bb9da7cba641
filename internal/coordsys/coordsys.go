// 包 coordsys：国内互联网地图坐标（GCJ-02 / BD-09）到 WGS84 的近似换算
package coordsys

import (
	"errors"
	"math"
	"strings"
)

// ErrUnknownSystem 表示不支持的坐标系名称
var ErrUnknownSystem = errors.New("unknown coordinate system")

const (
	axis = 6378245.0
	ee   = 0.00669342162296594323
)

// 文档注释：把指定坐标系下的坐标换算为 WGS84
// 背景：时区边界数据为 WGS84；来自高德/腾讯（GCJ-02）或百度（BD-09）的坐标需先换算，否则边界附近会判错区域。
// 约束：system 不区分大小写，支持 ""/wgs84、gcj02/gcj-02、bd09/bd-09；中国境外的坐标原样返回；
// 反算为一次迭代近似，误差在数米到数十米。
func ToWGS84(system string, lat, lon float64) (float64, float64, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(system)), "-", "") {
	case "", "wgs84":
		return lat, lon, nil
	case "gcj02":
		wlat, wlon := gcjToWGS(lat, lon)
		return wlat, wlon, nil
	case "bd09":
		glat, glon := bdToGCJ(lat, lon)
		wlat, wlon := gcjToWGS(glat, glon)
		return wlat, wlon, nil
	default:
		return lat, lon, ErrUnknownSystem
	}
}

func gcjToWGS(lat, lon float64) (float64, float64) {
	glat, glon := offsetGCJ(lat, lon)
	return lat*2 - glat, lon*2 - glon
}

func bdToGCJ(lat, lon float64) (float64, float64) {
	x := lon - 0.0065
	y := lat - 0.006
	z := math.Sqrt(x*x+y*y) - 0.00002*math.Sin(y*math.Pi)
	theta := math.Atan2(y, x) - 0.000003*math.Cos(x*math.Pi)
	return z * math.Sin(theta), z * math.Cos(theta)
}

// offsetGCJ 返回 WGS84 坐标加密后的 GCJ-02 坐标
func offsetGCJ(lat, lon float64) (float64, float64) {
	if outOfChina(lat, lon) {
		return lat, lon
	}
	dLat := shiftLat(lon-105.0, lat-35.0)
	dLon := shiftLon(lon-105.0, lat-35.0)
	rad := lat / 180.0 * math.Pi
	magic := math.Sin(rad)
	magic = 1 - ee*magic*magic
	sq := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((axis * (1 - ee)) / (magic * sq) * math.Pi)
	dLon = (dLon * 180.0) / (axis / sq * math.Cos(rad) * math.Pi)
	return lat + dLat, lon + dLon
}

func outOfChina(lat, lon float64) bool {
	return lon < 72.004 || lon > 137.8347 || lat < 0.8293 || lat > 55.8271
}

func shiftLat(x, y float64) float64 {
	r := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	r += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	r += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	r += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return r
}

func shiftLon(x, y float64) float64 {
	r := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	r += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	r += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	r += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return r
}
