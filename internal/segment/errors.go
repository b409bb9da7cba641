package segment

import (
	"fmt"
	"tzchains/internal/geom"
)

// EdgeError：零长度边（相邻两点完全相同）
type EdgeError struct {
	At    EdgeRef
	Point geom.Point
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("degenerate edge at %v: repeated point %v", e.At, e.Point)
}

// DuplicateEdgeError：同一有向线段被两条边占用
// 背景：对简单、不自重叠的多边形集合，同方向的共享边不可能出现；出现即说明输入损坏。
type DuplicateEdgeError struct {
	Key       geom.SegmentKey
	Direction geom.Direction
	Existing  EdgeRef
	Claim     EdgeRef
}

func (e *DuplicateEdgeError) Error() string {
	return fmt.Sprintf("duplicate %s edge %v: claimed by %v and %v", e.Direction, e.Key, e.Existing, e.Claim)
}
