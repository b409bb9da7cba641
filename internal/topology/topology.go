// 包 topology：去重后的边界图（链集合 + 区域→环→链引用）及其回放与查询
package topology

import (
	"fmt"
	"tzchains/internal/geom"
)

// Chain：一段可复用的折线，ID 即其在 Chains 中的下标；创建后不可修改
type Chain struct {
	ID     int
	Points []geom.Point
}

// Segments 返回链包含的线段数
func (c Chain) Segments() int { return len(c.Points) - 1 }

// ChainRef：环对链的一次引用；Reversed 为 true 时按逆序使用链上的点
type ChainRef struct {
	ID       int
	Reversed bool
}

// 文档注释：边界图
// 约束：Zones 中每个区域的环顺序与提取顺序一致；Order 记录区域的提取顺序，用于稳定的查询与输出。
type Topology struct {
	Chains []Chain
	Zones  map[string][][]ChainRef
	Order  []string
}

func New() *Topology {
	return &Topology{Zones: make(map[string][][]ChainRef)}
}

// AddChain 追加一条新链并返回其 ID
func (t *Topology) AddChain(pts []geom.Point) int {
	id := len(t.Chains)
	t.Chains = append(t.Chains, Chain{ID: id, Points: pts})
	return id
}

// Refs 返回某区域某环的引用列表
func (t *Topology) Refs(zone string, ring int) ([]ChainRef, error) {
	rings, ok := t.Zones[zone]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	if ring < 0 || ring >= len(rings) {
		return nil, fmt.Errorf("%w: %q has no ring %d", ErrUnknownZone, zone, ring)
	}
	return rings[ring], nil
}

// chainPoints 按引用方向返回链上的点（新切片）
func (t *Topology) chainPoints(ref ChainRef) ([]geom.Point, error) {
	if ref.ID < 0 || ref.ID >= len(t.Chains) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadChainRef, ref.ID, len(t.Chains))
	}
	src := t.Chains[ref.ID].Points
	out := make([]geom.Point, len(src))
	if !ref.Reversed {
		copy(out, src)
		return out, nil
	}
	for i, p := range src {
		out[len(src)-1-i] = p
	}
	return out, nil
}

// 文档注释：按引用列表回放一个环
// 背景：依次拼接各链（带反转），相邻两段共享的衔接点只保留一次。
// 约束：返回的环保留闭合点（末点等于首点），与提取阶段得到的环逐点可比。
func (t *Topology) ReconstructRefs(refs []ChainRef) (geom.Ring, error) {
	var out geom.Ring
	for i, ref := range refs {
		pts, err := t.chainPoints(ref)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			out = append(out, pts...)
			continue
		}
		if out[len(out)-1] != pts[0] {
			return nil, fmt.Errorf("%w: ref %d starts at %v, previous ends at %v", ErrBrokenJoin, i, pts[0], out[len(out)-1])
		}
		out = append(out, pts[1:]...)
	}
	if !out.Closed() {
		return nil, fmt.Errorf("%w: %d refs", ErrOpenBoundary, len(refs))
	}
	return out, nil
}

// Reconstruct 回放指定区域的指定环
func (t *Topology) Reconstruct(zone string, ring int) (geom.Ring, error) {
	refs, err := t.Refs(zone, ring)
	if err != nil {
		return nil, err
	}
	return t.ReconstructRefs(refs)
}

// Stats：拓扑的规模统计
type Stats struct {
	Zones        int
	Rings        int
	Chains       int
	Points       int
	Refs         int
	SharedChains int
}

func (t *Topology) Stats() Stats {
	s := Stats{Zones: len(t.Zones), Chains: len(t.Chains)}
	for _, c := range t.Chains {
		s.Points += len(c.Points)
	}
	uses := make([]int, len(t.Chains))
	for _, rings := range t.Zones {
		s.Rings += len(rings)
		for _, refs := range rings {
			s.Refs += len(refs)
			for _, r := range refs {
				if r.ID >= 0 && r.ID < len(uses) {
					uses[r.ID]++
				}
			}
		}
	}
	for _, n := range uses {
		if n > 1 {
			s.SharedChains++
		}
	}
	return s
}
