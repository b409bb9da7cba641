// 包 segment：把所有环的有向边规范化为与方向无关的线段表（SegmentCanonicalizer）
package segment

import (
	"fmt"
	"tzchains/internal/geom"
)

// EdgeRef：一次有向边出现的位置，Edge 为 i 表示 ring[i] → ring[i+1]
type EdgeRef struct {
	Zone string
	Ring int
	Edge int
}

func (r EdgeRef) String() string { return fmt.Sprintf("%s/%d/%d", r.Zone, r.Ring, r.Edge) }

// SameRing 判断两条边是否来自同一区域的同一个环
func (r EdgeRef) SameRing(o EdgeRef) bool { return r.Zone == o.Zone && r.Ring == o.Ring }

// NoChain 表示线段尚未归属任何链
const NoChain = -1

// 文档注释：单条线段的使用记录
// 约束：正向槽与反向槽各最多被一条边占用；链相关字段只由 chain 包在构建时写入一次。
// ChainPos 为该线段在链中的位置（链第 ChainPos 个点到第 ChainPos+1 个点）；
// ChainDir 为链存储顺序相对于键的方向。
type Record struct {
	Key      geom.SegmentKey
	Forward  *EdgeRef
	Reverse  *EdgeRef
	Chain    int
	ChainPos int
	ChainDir geom.Direction
}

// Slot 返回指定方向的占用者
func (r *Record) Slot(d geom.Direction) *EdgeRef {
	if d == geom.Forward {
		return r.Forward
	}
	return r.Reverse
}

// Shared 判断两个方向是否都被占用
func (r *Record) Shared() bool { return r.Forward != nil && r.Reverse != nil }

// HasChain 判断是否已分配链
func (r *Record) HasChain() bool { return r.Chain != NoChain }

// 文档注释：线段表
// 背景：取代全局字典，显式构造并在规范化与建链两个阶段之间移交所有权；不支持并发访问。
// 约束：表只增不减；对同一环重复 Add 会因槽位已被占用而失败（非幂等）。
type Table struct {
	recs  map[geom.SegmentKey]*Record
	edges int
}

func NewTable() *Table {
	return &Table{recs: make(map[geom.SegmentKey]*Record)}
}

// Len 返回不同线段数
func (t *Table) Len() int { return len(t.recs) }

// Edges 返回已登记的有向边总数
func (t *Table) Edges() int { return t.edges }

// Add 登记一个环的全部边
func (t *Table) Add(zone string, ringIdx int, ring geom.Ring) error {
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		ref := EdgeRef{Zone: zone, Ring: ringIdx, Edge: i}
		if a == b {
			return &EdgeError{At: ref, Point: a}
		}
		key, dir := geom.NewSegmentKey(a, b)
		rec, ok := t.recs[key]
		if !ok {
			rec = &Record{Key: key, Chain: NoChain}
			t.recs[key] = rec
		}
		if cur := rec.Slot(dir); cur != nil {
			return &DuplicateEdgeError{Key: key, Direction: dir, Existing: *cur, Claim: ref}
		}
		claimed := ref
		if dir == geom.Forward {
			rec.Forward = &claimed
		} else {
			rec.Reverse = &claimed
		}
		t.edges++
	}
	return nil
}

// Get 返回线段键对应的记录
func (t *Table) Get(key geom.SegmentKey) (*Record, bool) {
	rec, ok := t.recs[key]
	return rec, ok
}

// Lookup 按有向边查询记录，返回记录与该边的方向
func (t *Table) Lookup(a, b geom.Point) (*Record, geom.Direction, bool) {
	key, dir := geom.NewSegmentKey(a, b)
	rec, ok := t.recs[key]
	return rec, dir, ok
}

// Records 遍历全部记录（顺序不确定）
func (t *Table) Records(fn func(*Record)) {
	for _, r := range t.recs {
		fn(r)
	}
}

// 文档注释：对全部区域执行规范化
// 约束：结果与环的处理顺序无关；任一错误立即返回。
func Canonicalize(zones []geom.Zone) (*Table, error) {
	t := NewTable()
	for _, z := range zones {
		for ri, r := range z.Rings {
			if err := t.Add(z.ID, ri, r); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}
