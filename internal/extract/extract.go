// 包 extract：把数据源的扁平多部件几何切分为闭合环（RingExtractor）
package extract

import (
	"fmt"
	"tzchains/internal/geom"
	"tzchains/internal/source"
)

// 文档注释：切分单条记录的多部件几何
// 背景：部件 i 的范围为 [parts[i], parts[i+1])，最后一个部件到点列表末尾。
// 约束：形状类型必须为多边形；每个环必须闭合、至少 4 点、坐标有限；任一不满足即返回 *GeometryError。
// 除分配外无副作用，返回的环与输入点列表不共享底层数组。
func Extract(zone string, sh source.Shape) ([]geom.Ring, error) {
	if sh.Type != source.TypePolygon {
		return nil, &GeometryError{Zone: zone, Ring: -1, Shape: sh.Type, cause: ErrNotPolygon}
	}
	n := len(sh.Parts)
	rings := make([]geom.Ring, 0, n)
	for i := 0; i < n; i++ {
		lo, hi := partBounds(sh, i)
		if lo < 0 || hi > len(sh.Points) || lo >= hi {
			return nil, &GeometryError{Zone: zone, Ring: i, Shape: sh.Type,
				cause: fmt.Errorf("%w: part %d spans [%d,%d) of %d points", ErrBadParts, i, lo, hi, len(sh.Points))}
		}
		r := make(geom.Ring, hi-lo)
		copy(r, sh.Points[lo:hi])
		if err := validate(r); err != nil {
			return nil, &GeometryError{Zone: zone, Ring: i, Shape: sh.Type, cause: err}
		}
		rings = append(rings, r)
	}
	return rings, nil
}

// partBounds 计算第 idx 个部件的起止下标
func partBounds(sh source.Shape, idx int) (int, int) {
	lo := sh.Parts[idx]
	if idx+1 == len(sh.Parts) {
		return lo, len(sh.Points)
	}
	return lo, sh.Parts[idx+1]
}

func validate(r geom.Ring) error {
	if len(r) < geom.MinRingLen {
		return fmt.Errorf("%w: got %d", ErrShortRing, len(r))
	}
	for i, p := range r {
		if !p.Finite() {
			return fmt.Errorf("%w at point %d", ErrNonFinite, i)
		}
	}
	if !r.Closed() {
		return fmt.Errorf("%w: first %v last %v", ErrUnclosedRing, r[0], r[len(r)-1])
	}
	return nil
}

// 文档注释：把数据源的全部记录提取为区域列表
// 背景：同一标识可能出现在多条记录中（多个多边形分开存储），此时环按出现顺序追加到先出现的区域。
// 约束：区域顺序为标识首次出现的顺序；任一记录失败即整体失败。
func Zones(recs []source.Record) ([]geom.Zone, error) {
	idx := make(map[string]int, len(recs))
	var zones []geom.Zone
	for _, rec := range recs {
		rings, err := Extract(rec.ID, rec.Shape)
		if err != nil {
			return nil, err
		}
		if i, ok := idx[rec.ID]; ok {
			zones[i].Rings = append(zones[i].Rings, rings...)
			continue
		}
		idx[rec.ID] = len(zones)
		zones = append(zones, geom.Zone{ID: rec.ID, Rings: rings})
	}
	return zones, nil
}
