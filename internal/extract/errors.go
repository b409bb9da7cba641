package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPolygon 表示形状类型不是多边形
	ErrNotPolygon = errors.New("shape is not a polygon")
	// ErrBadParts 表示部件偏移越界或不递增
	ErrBadParts = errors.New("invalid part offsets")
	// ErrUnclosedRing 表示环的首末点不同
	ErrUnclosedRing = errors.New("ring is not closed")
	// ErrShortRing 表示环少于 4 个点
	ErrShortRing = errors.New("ring has fewer than 4 points")
	// ErrNonFinite 表示坐标含 NaN 或无穷
	ErrNonFinite = errors.New("non-finite coordinate")
)

// GeometryError：几何提取失败，携带区域与环下标（Ring 为 -1 表示整条记录）
type GeometryError struct {
	Zone  string
	Ring  int
	Shape int
	cause error
}

func (e *GeometryError) Error() string {
	if e.Ring < 0 {
		return fmt.Sprintf("geometry error: zone %q (shape type %d): %v", e.Zone, e.Shape, e.cause)
	}
	return fmt.Sprintf("geometry error: zone %q ring %d: %v", e.Zone, e.Ring, e.cause)
}

func (e *GeometryError) Unwrap() error { return e.cause }
