package serialize

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"tzchains/internal/geom"
	"tzchains/internal/topology"

	gojson "github.com/goccy/go-json"
)

// pointSize 为每个点在点文件中的字节数（两个小端 float64）
const pointSize = 16

// 文档注释：紧凑布局的索引文件
// 背景：所有链的点按链 ID 顺序连续写入点文件；环的引用改写为点下标区间 [start, end)，
// 反向引用写作 [end, start]，读取方据此判断方向，无需单独的链表。
// 约束：Points 为点文件中的点数，用于读取时校验。
type PackedIndex struct {
	Points int                   `json:"points"`
	Zones  map[string][][][2]int `json:"zones"`
}

// EncodePacked 写出点文件与索引文件
func EncodePacked(points, index io.Writer, t *topology.Topology) error {
	offsets := make([]int, len(t.Chains))
	bw := bufio.NewWriter(points)
	var buf [pointSize]byte
	n := 0
	for i, c := range t.Chains {
		offsets[i] = n
		for _, p := range c.Points {
			binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(p.Lon))
			binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Lat))
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
			n++
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	idx := PackedIndex{Points: n, Zones: make(map[string][][][2]int, len(t.Zones))}
	for id, rings := range t.Zones {
		out := make([][][2]int, len(rings))
		for ri, refs := range rings {
			rr := make([][2]int, len(refs))
			for k, r := range refs {
				lo := offsets[r.ID]
				hi := lo + len(t.Chains[r.ID].Points)
				if r.Reversed {
					rr[k] = [2]int{hi, lo}
				} else {
					rr[k] = [2]int{lo, hi}
				}
			}
			out[ri] = rr
		}
		idx.Zones[id] = out
	}
	return gojson.NewEncoder(index).Encode(idx)
}

// 文档注释：读取紧凑布局并还原边界图
// 约束：链按起始下标排序后依次编号，与写出时的链 ID 一致（每条链至少被引用一次）。
func DecodePacked(points, index io.Reader) (*topology.Topology, error) {
	var idx PackedIndex
	if err := gojson.NewDecoder(index).Decode(&idx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	raw, err := io.ReadAll(points)
	if err != nil {
		return nil, err
	}
	if len(raw) != idx.Points*pointSize {
		return nil, fmt.Errorf("%w: point file has %d bytes, index declares %d points", ErrMalformed, len(raw), idx.Points)
	}
	pointAt := func(i int) geom.Point {
		off := i * pointSize
		return geom.Point{
			Lon: math.Float64frombits(binary.LittleEndian.Uint64(raw[off:])),
			Lat: math.Float64frombits(binary.LittleEndian.Uint64(raw[off+8:])),
		}
	}
	ranges := make(map[[2]int]int)
	for _, rings := range idx.Zones {
		for _, refs := range rings {
			for _, r := range refs {
				lo, hi := r[0], r[1]
				if lo > hi {
					lo, hi = hi, lo
				}
				if lo < 0 || hi > idx.Points || hi-lo < 2 {
					return nil, fmt.Errorf("%w: range %v", ErrMalformed, r)
				}
				ranges[[2]int{lo, hi}] = -1
			}
		}
	}
	keys := make([][2]int, 0, len(ranges))
	for k := range ranges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i][0] < keys[j][0] })
	t := topology.New()
	for _, k := range keys {
		pts := make([]geom.Point, 0, k[1]-k[0])
		for i := k[0]; i < k[1]; i++ {
			pts = append(pts, pointAt(i))
		}
		ranges[k] = t.AddChain(pts)
	}
	for id, rings := range idx.Zones {
		out := make([][]topology.ChainRef, len(rings))
		for ri, refs := range rings {
			rr := make([]topology.ChainRef, len(refs))
			for k, r := range refs {
				rev := r[0] > r[1]
				key := r
				if rev {
					key = [2]int{r[1], r[0]}
				}
				rr[k] = topology.ChainRef{ID: ranges[key], Reversed: rev}
			}
			out[ri] = rr
		}
		t.Zones[id] = out
		t.Order = append(t.Order, id)
	}
	sort.Strings(t.Order)
	return t, nil
}
