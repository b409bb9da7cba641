package chain

import (
	"errors"
	"fmt"
	"tzchains/internal/segment"
)

var (
	// ErrMissingSegment 表示线段表里没有该边（表不是由同一批环构建的）
	ErrMissingSegment = errors.New("segment missing from table")
	// ErrSlotMismatch 表示线段记录的槽位不是当前边
	ErrSlotMismatch = errors.New("segment slot held by another edge")
	// ErrPartialChain 表示某个环只使用了链的一部分
	ErrPartialChain = errors.New("ring uses a partial chain")
	// ErrDuplicateZone 表示输入中有重复的区域标识
	ErrDuplicateZone = errors.New("duplicate zone id")
)

// BuildError：建链阶段的不变量被破坏，说明输入与线段表不一致，属于致命错误
type BuildError struct {
	At    segment.EdgeRef
	cause error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("chain build failed at %v: %v", e.At, e.cause)
}

func (e *BuildError) Unwrap() error { return e.cause }
