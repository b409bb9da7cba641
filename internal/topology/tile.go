package topology

import (
	"fmt"
	"sort"
)

// 文档注释：把若干区域栅格化为掩码
// 背景：先用 PolygonsFor 合并所选区域的外轮廓，再逐列处理：每条与该列经线相交的线段在交点下方的第一行翻转一次，
// 最后自上而下按翻转累积填充。结果与 ZoneContains 的奇偶规则一致，只有恰好落在边界上的像素可能不同。
// 参数：lats 为各行中心纬度（自北向南严格递减），lons 为各列中心经度，任意有限值。
// 返回：mask[y][x] 表示第 y 行第 x 列的像素是否落在所选区域内。
// 异常：未知区域返回 ErrUnknownZone；lats 非严格递减返回 ErrBadGrid
func (t *Topology) Tile(lats, lons []float64, zones []string) ([][]bool, error) {
	for y := 1; y < len(lats); y++ {
		if !(lats[y] < lats[y-1]) {
			return nil, fmt.Errorf("%w: row %d", ErrBadGrid, y)
		}
	}
	rings, err := t.PolygonsFor(zones)
	if err != nil {
		return nil, err
	}
	h, w := len(lats), len(lons)
	mask := make([][]bool, h)
	for y := range mask {
		mask[y] = make([]bool, w)
	}
	flips := make([]bool, h)
	for x, lon := range lons {
		lon = normalizeLon(lon)
		for y := range flips {
			flips[y] = false
		}
		for _, ring := range rings {
			for k := 1; k < len(ring); k++ {
				xlat, ok := columnIntercept(ring[k-1], ring[k], lon)
				if !ok {
					continue
				}
				// 第一个严格位于交点以南的行
				if y := sort.Search(h, func(i int) bool { return lats[i] < xlat }); y < h {
					flips[y] = !flips[y]
				}
			}
		}
		inside := false
		for y := 0; y < h; y++ {
			if flips[y] {
				inside = !inside
			}
			mask[y][x] = inside
		}
	}
	return mask, nil
}
