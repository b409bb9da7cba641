package topology

import (
	"fmt"
	"tzchains/internal/geom"

	"github.com/RoaringBitmap/roaring/v2"
)

// 文档注释：校验边界图与原始区域一致
// 背景：回放每个环并逐点比较；再用位图检查链位置的覆盖关系，确保每条有向边恰好落在一条链的一个位置上。
// 约束：链位置按链 ID 顺序连续编号；同一位置在同一方向上只能被遍历一次，且每个位置至少被遍历一次；
// 同一线段不得出现在两个链位置上。任一违反即返回错误，不做修复。
func (t *Topology) Verify(zones []geom.Zone) error {
	if len(zones) != len(t.Zones) {
		return fmt.Errorf("%w: topology has %d zones, source has %d", ErrCoverage, len(t.Zones), len(zones))
	}
	offsets := make([]int, len(t.Chains))
	total := 0
	for i, c := range t.Chains {
		offsets[i] = total
		total += c.Segments()
	}
	fwd := roaring.New()
	rev := roaring.New()
	for _, z := range zones {
		rings, ok := t.Zones[z.ID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownZone, z.ID)
		}
		if len(rings) != len(z.Rings) {
			return fmt.Errorf("%w: zone %q has %d rings, topology has %d", ErrCoverage, z.ID, len(z.Rings), len(rings))
		}
		for ri, want := range z.Rings {
			refs := rings[ri]
			got, err := t.ReconstructRefs(refs)
			if err != nil {
				return &ReconstructionMismatchError{Zone: z.ID, Ring: ri, Want: want, cause: err}
			}
			if !got.Equal(want) {
				return &ReconstructionMismatchError{Zone: z.ID, Ring: ri, Index: firstDiff(want, got), Want: want, Got: got}
			}
			for _, ref := range refs {
				bm := fwd
				if ref.Reversed {
					bm = rev
				}
				for k := 0; k < t.Chains[ref.ID].Segments(); k++ {
					if !bm.CheckedAdd(uint32(offsets[ref.ID] + k)) {
						return fmt.Errorf("%w: chain %d segment %d walked twice in one direction (zone %q ring %d)",
							ErrCoverage, ref.ID, k, z.ID, ri)
					}
				}
			}
		}
	}
	if n := roaring.Or(fwd, rev).GetCardinality(); n != uint64(total) {
		return fmt.Errorf("%w: %d of %d chain segments referenced", ErrCoverage, n, total)
	}
	seen := make(map[geom.SegmentKey]int, total)
	for _, c := range t.Chains {
		for k := 0; k+1 < len(c.Points); k++ {
			if c.Points[k] == c.Points[k+1] {
				return fmt.Errorf("%w: chain %d has zero-length segment %d", ErrCoverage, c.ID, k)
			}
			key, _ := geom.NewSegmentKey(c.Points[k], c.Points[k+1])
			if prev, dup := seen[key]; dup {
				return fmt.Errorf("%w: segment %v stored in chains %d and %d", ErrCoverage, key, prev, c.ID)
			}
			seen[key] = c.ID
		}
	}
	return nil
}

func firstDiff(a, b geom.Ring) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
