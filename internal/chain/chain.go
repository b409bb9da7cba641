// 包 chain：把线段表压缩为最长公共链，并把每个环改写为链引用序列（ChainBuilder）
package chain

import (
	"fmt"
	"sort"
	"tzchains/internal/geom"
	"tzchains/internal/segment"
	"tzchains/internal/topology"
)

// 文档注释：由线段表构建边界图
// 背景：区域按标识字节序、环按下标、边按下标依次扫描；首次遇到的线段由当前环“发现”并建链或续链，
// 已有链的线段改写为对该链的引用。处理顺序固定，链 ID 在相同输入上可复现。
// 约束：t 必须由同一批 zones 经 segment.Canonicalize 得到；建链过程中会写入记录的链字段，t 此后归调用方只读使用。
func Build(zones []geom.Zone, t *segment.Table) (*topology.Topology, error) {
	topo := topology.New()
	for _, z := range zones {
		if _, dup := topo.Zones[z.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateZone, z.ID)
		}
		topo.Order = append(topo.Order, z.ID)
		topo.Zones[z.ID] = make([][]topology.ChainRef, len(z.Rings))
	}
	order := make([]int, len(zones))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return zones[order[a]].ID < zones[order[b]].ID })
	for _, zi := range order {
		z := zones[zi]
		for ri, ring := range z.Rings {
			s := &scan{table: t, topo: topo, zone: z.ID, ring: ri, building: segment.NoChain}
			refs, err := s.run(ring)
			if err != nil {
				return nil, err
			}
			topo.Zones[z.ID][ri] = refs
		}
	}
	return topo, nil
}

// scan 是单个环的一次从左到右扫描
type scan struct {
	table *segment.Table
	topo  *topology.Topology
	zone  string
	ring  int

	refs     []topology.ChainRef
	building int // 当前环正在延长的链，NoChain 表示没有
	lastPos  int // 最近一条引用在链中走到的位置
}

func (s *scan) run(ring geom.Ring) ([]topology.ChainRef, error) {
	var prev *segment.Record
	var prevDir geom.Direction
	for i := 0; i < ring.Edges(); i++ {
		at := segment.EdgeRef{Zone: s.zone, Ring: s.ring, Edge: i}
		rec, dir, ok := s.table.Lookup(ring[i], ring[i+1])
		if !ok {
			return nil, &BuildError{At: at, cause: ErrMissingSegment}
		}
		if slot := rec.Slot(dir); slot == nil || *slot != at {
			return nil, &BuildError{At: at, cause: ErrSlotMismatch}
		}
		if rec.HasChain() {
			if err := s.reuse(rec, dir); err != nil {
				return nil, &BuildError{At: at, cause: err}
			}
		} else if err := s.discover(rec, dir, prev, prevDir, i); err != nil {
			return nil, &BuildError{At: at, cause: err}
		}
		prev, prevDir = rec, dir
	}
	if err := s.closeRef(); err != nil {
		return nil, &BuildError{At: segment.EdgeRef{Zone: s.zone, Ring: s.ring, Edge: ring.Edges() - 1}, cause: err}
	}
	return s.refs, nil
}

// discover 处理尚未归属任何链的线段：续接当前链，或以本边两个端点新建一条链
func (s *scan) discover(rec *segment.Record, dir geom.Direction, prev *segment.Record, prevDir geom.Direction, i int) error {
	a, b := rec.Key.Endpoints(dir)
	if i > 0 && s.building != segment.NoChain && InSequence(prev, prevDir, rec, dir) {
		c := &s.topo.Chains[s.building]
		c.Points = append(c.Points, b)
		s.assign(rec, dir, s.building, len(c.Points)-2)
		return nil
	}
	// 新链开始前，上一条引用必须完整走到链尾
	if err := s.closeRef(); err != nil {
		return err
	}
	id := s.topo.AddChain([]geom.Point{a, b})
	s.assign(rec, dir, id, 0)
	s.refs = append(s.refs, topology.ChainRef{ID: id})
	s.building = id
	return nil
}

func (s *scan) assign(rec *segment.Record, dir geom.Direction, id, pos int) {
	rec.Chain = id
	rec.ChainPos = pos
	rec.ChainDir = dir
	s.lastPos = pos
}

// reuse 处理已归属链的线段：若与上一条引用在同一链、同一方向上相邻则合并，否则新增引用
func (s *scan) reuse(rec *segment.Record, dir geom.Direction) error {
	s.building = segment.NoChain
	reversed := dir != rec.ChainDir
	if n := len(s.refs); n > 0 {
		last := s.refs[n-1]
		step := 1
		if reversed {
			step = -1
		}
		if last.ID == rec.Chain && last.Reversed == reversed && rec.ChainPos == s.lastPos+step {
			s.lastPos = rec.ChainPos
			return nil
		}
		if err := s.closeRef(); err != nil {
			return err
		}
	}
	entry := 0
	if reversed {
		entry = s.topo.Chains[rec.Chain].Segments() - 1
	}
	if rec.ChainPos != entry {
		return fmt.Errorf("%w: chain %d entered at segment %d", ErrPartialChain, rec.Chain, rec.ChainPos)
	}
	s.refs = append(s.refs, topology.ChainRef{ID: rec.Chain, Reversed: reversed})
	s.lastPos = rec.ChainPos
	return nil
}

// closeRef 检查最后一条引用已走到链的另一端
func (s *scan) closeRef() error {
	n := len(s.refs)
	if n == 0 {
		return nil
	}
	last := s.refs[n-1]
	exit := s.topo.Chains[last.ID].Segments() - 1
	if last.Reversed {
		exit = 0
	}
	if s.lastPos != exit {
		return fmt.Errorf("%w: chain %d left at segment %d", ErrPartialChain, last.ID, s.lastPos)
	}
	return nil
}

// 文档注释：判断同一环上相邻两条边的线段是否“连续共享”
// 背景：两条边各自的另一个使用者（对侧槽位）要么都不存在，要么来自同一区域的同一个环且边下标恰好小 1，
// 对侧环以相反方向走过这段公共边界。同方向的配对不可能出现（同向槽位唯一），因此只检查交叉方向。
// 约束：不跨越对侧环的第 0 条边回绕，保证每个使用者都能从链的一端完整走到另一端。
func InSequence(prev *segment.Record, prevDir geom.Direction, cur *segment.Record, curDir geom.Direction) bool {
	if prev == nil || cur == nil {
		return false
	}
	p1 := prev.Slot(prevDir.Opposite())
	p2 := cur.Slot(curDir.Opposite())
	if p1 == nil && p2 == nil {
		return true
	}
	if p1 == nil || p2 == nil {
		return false
	}
	return p1.SameRing(*p2) && p2.Edge == p1.Edge-1
}
