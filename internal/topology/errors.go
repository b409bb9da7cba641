package topology

import (
	"errors"
	"fmt"
	"tzchains/internal/geom"
)

var (
	// ErrUnknownZone 表示拓扑中没有该区域
	ErrUnknownZone = errors.New("unknown zone")
	// ErrBadChainRef 表示引用了不存在的链
	ErrBadChainRef = errors.New("chain reference out of range")
	// ErrBrokenJoin 表示相邻两段链的衔接点不一致
	ErrBrokenJoin = errors.New("consecutive chains do not share an endpoint")
	// ErrOpenBoundary 表示合并后的边界无法闭合
	ErrOpenBoundary = errors.New("boundary does not close")
	// ErrCoverage 表示链的位置覆盖不满足一一对应
	ErrCoverage = errors.New("chain coverage violated")
	// ErrBadGrid 表示栅格的纬度序列不是严格递减
	ErrBadGrid = errors.New("tile latitudes must be strictly decreasing")
)

// ReconstructionMismatchError：按链引用回放的环与原始环不一致
// 约束：Index 为第一个不同点的下标；长度不同而前缀相同时 Index 为较短一方的长度。
type ReconstructionMismatchError struct {
	Zone  string
	Ring  int
	Index int
	Want  geom.Ring
	Got   geom.Ring
	cause error
}

func (e *ReconstructionMismatchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("reconstruction mismatch: zone %q ring %d: %v", e.Zone, e.Ring, e.cause)
	}
	return fmt.Sprintf("reconstruction mismatch: zone %q ring %d at point %d (want %d points, got %d)",
		e.Zone, e.Ring, e.Index, len(e.Want), len(e.Got))
}

func (e *ReconstructionMismatchError) Unwrap() error { return e.cause }
