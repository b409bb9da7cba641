package topology

import (
	"fmt"
	"math"
	"sort"
	"tzchains/internal/geom"
)

// normalizeLon 把经度折算到 [-180, 180)
func normalizeLon(lon float64) float64 {
	return math.Mod(math.Mod(lon, 360)+540, 360) - 180
}

// 文档注释：判断点是否落在区域内
// 背景：沿经线从北极向下做射线，统计与区域全部环的交点数（奇偶规则，洞自然排除）；跨日期变更线的线段
// 先把经度平移 180° 再比较。点恰好落在边界上视为在内。
// 约束：纬度需在 (-90, 90) 内，否则返回 false；线段足够短，按经纬度平面直线处理。
func (t *Topology) ZoneContains(zone string, lat, lon float64) (bool, error) {
	rings, ok := t.Zones[zone]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	if lat >= 90 || lat <= -90 || math.IsNaN(lat) || math.IsNaN(lon) {
		return false, nil
	}
	lon = normalizeLon(lon)
	crossings := 0
	for _, refs := range rings {
		for _, ref := range refs {
			if ref.ID < 0 || ref.ID >= len(t.Chains) {
				return false, fmt.Errorf("%w: %d", ErrBadChainRef, ref.ID)
			}
			pts := t.Chains[ref.ID].Points
			for k := 1; k < len(pts); k++ {
				on, hit := crossSegment(pts[k-1], pts[k], lat, lon)
				if on {
					return true, nil
				}
				if hit {
					crossings++
				}
			}
		}
	}
	return crossings%2 == 1, nil
}

// crossSegment 判断线段与点正北方向射线的关系：on 表示点在线段上，hit 表示射线穿过线段
func crossSegment(a, b geom.Point, lat, lon float64) (on, hit bool) {
	if a.Lon == b.Lon {
		return a.Lon == lon && inRange(lat, a.Lat, b.Lat), false
	}
	xlat, ok := columnIntercept(a, b, lon)
	if !ok {
		return false, false
	}
	if xlat == lat {
		return true, false
	}
	return false, xlat > lat
}

// 文档注释：求线段与经线 lon 的交点纬度
// 约束：跨日期变更线的线段先把经度折算到 [0, 360)；西端点计入、东端点不计入，保证经过顶点的经线只计一次。
func columnIntercept(a, b geom.Point, lon float64) (float64, bool) {
	x, ax, bx := lon, a.Lon, b.Lon
	if math.Abs(bx-ax) > 180 {
		x = math.Mod(x+360, 360)
		ax = math.Mod(ax+360, 360)
		bx = math.Mod(bx+360, 360)
	}
	alat, blat := a.Lat, b.Lat
	if bx < ax {
		ax, bx = bx, ax
		alat, blat = blat, alat
	}
	if ax <= x && x < bx {
		return alat + (blat-alat)*((x-ax)/(bx-ax)), true
	}
	return 0, false
}

func inRange(v, a, b float64) bool {
	if a < b {
		return a <= v && v <= b
	}
	return b <= v && v <= a
}

// ZoneAt 按提取顺序返回第一个包含该点的区域
func (t *Topology) ZoneAt(lat, lon float64) (string, bool) {
	for _, id := range t.Order {
		if ok, err := t.ZoneContains(id, lat, lon); err == nil && ok {
			return id, true
		}
	}
	return "", false
}

// 文档注释：合并若干区域的外轮廓
// 背景：所选区域之间共享的链会被以相反方向各引用一次，二者相互抵消；剩余的有向链按端点首尾相接拼成闭合环。
// 约束：拼接时同一起点有多条候选链时取 ID 最小者，结果确定；无法闭合返回 ErrOpenBoundary。
func (t *Topology) PolygonsFor(zones []string) ([]geom.Ring, error) {
	// 每条链的净使用次数：正向 +1，反向 -1
	net := make(map[int]int)
	for _, id := range zones {
		rings, ok := t.Zones[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownZone, id)
		}
		for _, refs := range rings {
			for _, ref := range refs {
				if ref.ID < 0 || ref.ID >= len(t.Chains) {
					return nil, fmt.Errorf("%w: %d", ErrBadChainRef, ref.ID)
				}
				if ref.Reversed {
					net[ref.ID]--
				} else {
					net[ref.ID]++
				}
			}
		}
	}
	var pieces [][]geom.Point
	ids := make([]int, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		n := net[id]
		ref := ChainRef{ID: id, Reversed: n < 0}
		if n < 0 {
			n = -n
		}
		for ; n > 0; n-- {
			pts, err := t.chainPoints(ref)
			if err != nil {
				return nil, err
			}
			pieces = append(pieces, pts)
		}
	}
	return stitch(pieces)
}

func stitch(pieces [][]geom.Point) ([]geom.Ring, error) {
	var out []geom.Ring
	byStart := make(map[geom.Point][]int)
	used := make([]bool, len(pieces))
	for i, p := range pieces {
		if p[0] == p[len(p)-1] {
			out = append(out, geom.Ring(p))
			used[i] = true
			continue
		}
		byStart[p[0]] = append(byStart[p[0]], i)
	}
	for i := range pieces {
		if used[i] {
			continue
		}
		used[i] = true
		ring := append(geom.Ring{}, pieces[i]...)
		for ring[0] != ring[len(ring)-1] {
			next := -1
			for _, j := range byStart[ring[len(ring)-1]] {
				if !used[j] {
					next = j
					break
				}
			}
			if next < 0 {
				return nil, fmt.Errorf("%w: dangling end at %v", ErrOpenBoundary, ring[len(ring)-1])
			}
			used[next] = true
			ring = append(ring, pieces[next][1:]...)
		}
		out = append(out, ring)
	}
	return out, nil
}
