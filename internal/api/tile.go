package api

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"strconv"
	"strings"
	"tzchains/internal/logger"
	"tzchains/internal/topology"
)

// 栅格边长上限
const maxTileSize = 1024

var defaultTileColor = color.NRGBA{R: 0x33, G: 0x88, B: 0xff, A: 0xff}

// tileRequest：/tile 的查询参数
type tileRequest struct {
	zones                    []string
	west, south, east, north float64
	width, height            int
	fill                     color.NRGBA
}

// 文档注释：解析 /tile 参数
// 约束：bbox 为 west,south,east,north；west 大于 east 表示跨日期变更线；w、h 在 [1, 1024] 内，缺省 256；
// color 为 6 位十六进制 RGB，缺省 3388ff
func parseTileRequest(r *http.Request) (*tileRequest, error) {
	q := r.URL.Query()
	req := &tileRequest{zones: zoneList(q.Get("zone")), width: 256, height: 256, fill: defaultTileColor}
	if len(req.zones) == 0 {
		return nil, errors.New("zone is required")
	}
	parts := strings.Split(q.Get("bbox"), ",")
	if len(parts) != 4 {
		return nil, errors.New("bbox must be west,south,east,north")
	}
	var box [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bad bbox value %q", p)
		}
		box[i] = v
	}
	req.west, req.south, req.east, req.north = box[0], box[1], box[2], box[3]
	if !(req.south < req.north) || req.south < -90 || req.north > 90 || req.west == req.east {
		return nil, errors.New("bbox must have south < north within [-90, 90] and west != east")
	}
	for _, d := range []struct {
		name string
		dst  *int
	}{{"w", &req.width}, {"h", &req.height}} {
		v := q.Get(d.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTileSize {
			return nil, fmt.Errorf("%s must be an integer within [1, %d]", d.name, maxTileSize)
		}
		*d.dst = n
	}
	if v := q.Get("color"); v != "" {
		c, err := strconv.ParseUint(strings.TrimPrefix(v, "#"), 16, 32)
		if err != nil || len(strings.TrimPrefix(v, "#")) != 6 {
			return nil, fmt.Errorf("bad color %q", v)
		}
		req.fill = color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xff}
	}
	return req, nil
}

// centers 返回各行、各列像素中心的纬度与经度
func (req *tileRequest) centers() (lats, lons []float64) {
	span := req.east - req.west
	if span < 0 {
		span += 360
	}
	lats = make([]float64, req.height)
	for y := range lats {
		lats[y] = req.north - (float64(y)+0.5)*(req.north-req.south)/float64(req.height)
	}
	lons = make([]float64, req.width)
	for x := range lons {
		lons[x] = req.west + (float64(x)+0.5)*span/float64(req.width)
	}
	return lats, lons
}

// 文档注释：把所选区域渲染为 PNG 栅格
// 背景：区域内像素取 color，其余透明；公共边界在合并后消失。
// 异常：参数错误返回 400；未知区域返回 404
func (s *Service) handleTile(w http.ResponseWriter, r *http.Request) {
	req, err := parseTileRequest(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	lats, lons := req.centers()
	mask, err := s.Topology.Tile(lats, lons, req.zones)
	if err != nil {
		if errors.Is(err, topology.ErrUnknownZone) {
			writeJSON(w, http.StatusNotFound, errorResult{Error: err.Error()})
			return
		}
		logger.L().Error("tile_error", "zones", req.zones, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResult{Error: err.Error()})
		return
	}
	img := image.NewPaletted(image.Rect(0, 0, req.width, req.height), color.Palette{color.NRGBA{}, req.fill})
	for y, row := range mask {
		for x, in := range row {
			if in {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	w.Header().Set("content-type", "image/png")
	w.Header().Set("cache-control", "public, max-age=86400")
	if err := png.Encode(w, img); err != nil {
		logger.L().Error("tile_encode_error", "err", err)
	}
}
