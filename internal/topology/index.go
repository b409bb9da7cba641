package topology

import (
	"math"
	"tzchains/internal/geom"
)

// bbox 为 minLon, minLat, maxLon, maxLat
type bbox [4]float64

func (b bbox) contains(lat, lon float64) bool {
	return lon >= b[0] && lon <= b[2] && lat >= b[1] && lat <= b[3]
}

// 文档注释：按区域包围盒过滤的查询索引
// 背景：逐区域做射线判定代价与点数成正比；先用包围盒排除绝大多数区域，再对候选做精确判定。
// 约束：跨越或贴住 ±180° 经线的区域不做经度过滤；结果与 Topology.ZoneAt 一致。索引建立后拓扑不得修改。
type Index struct {
	t     *Topology
	boxes []bbox
}

func NewIndex(t *Topology) *Index {
	idx := &Index{t: t, boxes: make([]bbox, len(t.Order))}
	for i, id := range t.Order {
		idx.boxes[i] = zoneBox(t, id)
	}
	return idx
}

func zoneBox(t *Topology, zone string) bbox {
	b := bbox{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	wrap := false
	for _, refs := range t.Zones[zone] {
		for _, ref := range refs {
			if ref.ID < 0 || ref.ID >= len(t.Chains) {
				continue
			}
			var prev geom.Point
			for k, p := range t.Chains[ref.ID].Points {
				b[0], b[1] = math.Min(b[0], p.Lon), math.Min(b[1], p.Lat)
				b[2], b[3] = math.Max(b[2], p.Lon), math.Max(b[3], p.Lat)
				if k > 0 && math.Abs(p.Lon-prev.Lon) > 180 {
					wrap = true
				}
				prev = p
			}
		}
	}
	if wrap || b[0] <= -180 || b[2] >= 180 {
		b[0], b[2] = math.Inf(-1), math.Inf(1)
	}
	return b
}

// ZoneAt 按提取顺序返回第一个包含该点的区域
func (x *Index) ZoneAt(lat, lon float64) (string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return "", false
	}
	nlon := normalizeLon(lon)
	for i, id := range x.t.Order {
		if !x.boxes[i].contains(lat, nlon) {
			continue
		}
		if ok, err := x.t.ZoneContains(id, lat, lon); err == nil && ok {
			return id, true
		}
	}
	return "", false
}

// Topology 返回索引所依附的拓扑
func (x *Index) Topology() *Topology { return x.t }
