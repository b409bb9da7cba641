// 包 geom：边界图的基础几何值类型（点、环、区域、线段键）
package geom

import (
	"cmp"
	"fmt"
	"math"
)

// Point：经纬度坐标对，按值比较，无容差
// 约束：两个点当且仅当经度与纬度都精确相等时视为同一顶点
type Point struct {
	Lon float64
	Lat float64
}

func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.Lon, p.Lat) }

// Finite 判断两个坐标分量是否都是有限数
func (p Point) Finite() bool {
	return !math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0) && !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0)
}

// Compare：点的全序（先经度，后纬度）
func Compare(a, b Point) int {
	if c := cmp.Compare(a.Lon, b.Lon); c != 0 {
		return c
	}
	return cmp.Compare(a.Lat, b.Lat)
}

func Less(a, b Point) bool { return Compare(a, b) < 0 }

// Ring：闭合环，首点与末点相同
// 约束：长度至少为 4（三个不同顶点加闭合点）；提取后不可修改
type Ring []Point

// MinRingLen 是闭合环的最小点数
const MinRingLen = 4

// Edges 返回环的边数，第 i 条边为 ring[i] → ring[i+1]
func (r Ring) Edges() int {
	if len(r) == 0 {
		return 0
	}
	return len(r) - 1
}

// Closed 判断首末点是否相同
func (r Ring) Closed() bool {
	return len(r) > 0 && r[0] == r[len(r)-1]
}

// Equal 逐点精确比较
func (r Ring) Equal(o Ring) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i] != o[i] {
			return false
		}
	}
	return true
}

// Zone：一个命名区域（如时区标识）及其有序的环列表
// 约束：环的插入顺序即输出中的环下标
type Zone struct {
	ID    string
	Rings []Ring
}

// Direction：边相对于线段键的方向
type Direction uint8

const (
	// Forward 表示边从 key.First 走向 key.Second
	Forward Direction = iota
	// Reverse 表示边从 key.Second 走向 key.First
	Reverse
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "reverse"
}

// Opposite 返回相反方向
func (d Direction) Opposite() Direction {
	if d == Forward {
		return Reverse
	}
	return Forward
}

// SegmentKey：与方向无关的线段键，First 按 Compare 严格小于 Second
// 约束：(A,B) 与 (B,A) 得到同一个键；结构体可直接作为 map 键
type SegmentKey struct {
	First  Point
	Second Point
}

// NewSegmentKey 规范化一条有向边，返回线段键与该边的方向
// 约束：a 与 b 必须不同，调用方负责拒绝零长度边
func NewSegmentKey(a, b Point) (SegmentKey, Direction) {
	if Less(b, a) {
		return SegmentKey{First: b, Second: a}, Reverse
	}
	return SegmentKey{First: a, Second: b}, Forward
}

// Endpoints 按给定方向返回线段的起点与终点
func (k SegmentKey) Endpoints(d Direction) (Point, Point) {
	if d == Forward {
		return k.First, k.Second
	}
	return k.Second, k.First
}

func (k SegmentKey) String() string { return k.First.String() + "-" + k.Second.String() }
