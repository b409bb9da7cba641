// 包 serialize：边界图的对外格式（JSON 文档、紧凑二进制布局）与压缩输出
package serialize

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"tzchains/internal/geom"
	"tzchains/internal/topology"

	gojson "github.com/goccy/go-json"
)

// ErrMalformed 表示输入文档结构不合法
var ErrMalformed = errors.New("malformed document")

// Coord 以 [lon, lat] 形式序列化
type Coord [2]float64

// Ref 以 [chainId, reversed] 形式序列化
type Ref struct {
	ID       int
	Reversed bool
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return gojson.Marshal([]any{r.ID, r.Reversed})
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	var raw []gojson.RawMessage
	if err := gojson.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: chain reference has %d elements", ErrMalformed, len(raw))
	}
	if err := gojson.Unmarshal(raw[0], &r.ID); err != nil {
		return fmt.Errorf("%w: chain id: %v", ErrMalformed, err)
	}
	if err := gojson.Unmarshal(raw[1], &r.Reversed); err != nil {
		return fmt.Errorf("%w: reversed flag: %v", ErrMalformed, err)
	}
	return nil
}

// 文档注释：对外 JSON 文档
// 约束：chains 按链 ID 排列；zones 的键按字节序输出（编码器对 map 键排序），相同输入得到逐字节相同的输出。
type Document struct {
	Chains [][]Coord          `json:"chains"`
	Zones  map[string][][]Ref `json:"zones"`
}

// NewDocument 把边界图转换为文档结构（纯转换，不做校验）
func NewDocument(t *topology.Topology) *Document {
	doc := &Document{
		Chains: make([][]Coord, len(t.Chains)),
		Zones:  make(map[string][][]Ref, len(t.Zones)),
	}
	for i, c := range t.Chains {
		pts := make([]Coord, len(c.Points))
		for k, p := range c.Points {
			pts[k] = Coord{p.Lon, p.Lat}
		}
		doc.Chains[i] = pts
	}
	for id, rings := range t.Zones {
		out := make([][]Ref, len(rings))
		for ri, refs := range rings {
			rr := make([]Ref, len(refs))
			for k, r := range refs {
				rr[k] = Ref{ID: r.ID, Reversed: r.Reversed}
			}
			out[ri] = rr
		}
		doc.Zones[id] = out
	}
	return doc
}

// Topology 把文档还原为边界图；区域顺序取标识的字节序（JSON 对象不保留顺序）
func (d *Document) Topology() (*topology.Topology, error) {
	t := topology.New()
	for i, pts := range d.Chains {
		if len(pts) < 2 {
			return nil, fmt.Errorf("%w: chain %d has %d points", ErrMalformed, i, len(pts))
		}
		cp := make([]geom.Point, len(pts))
		for k, c := range pts {
			cp[k] = geom.Point{Lon: c[0], Lat: c[1]}
		}
		t.AddChain(cp)
	}
	for id, rings := range d.Zones {
		out := make([][]topology.ChainRef, len(rings))
		for ri, refs := range rings {
			rr := make([]topology.ChainRef, len(refs))
			for k, r := range refs {
				if r.ID < 0 || r.ID >= len(t.Chains) {
					return nil, fmt.Errorf("%w: zone %q ring %d references chain %d", ErrMalformed, id, ri, r.ID)
				}
				rr[k] = topology.ChainRef{ID: r.ID, Reversed: r.Reversed}
			}
			out[ri] = rr
		}
		t.Zones[id] = out
		t.Order = append(t.Order, id)
	}
	sort.Strings(t.Order)
	return t, nil
}

// Encode 把边界图写为 JSON 文档
func Encode(w io.Writer, t *topology.Topology) error {
	return gojson.NewEncoder(w).Encode(NewDocument(t))
}

// Marshal 返回 JSON 文档的字节
func Marshal(t *topology.Topology) ([]byte, error) {
	return gojson.Marshal(NewDocument(t))
}

// Decode 读取 JSON 文档并还原边界图
func Decode(r io.Reader) (*topology.Topology, error) {
	var doc Document
	if err := gojson.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.Topology()
}

// Unmarshal 从字节还原边界图
func Unmarshal(b []byte) (*topology.Topology, error) {
	var doc Document
	if err := gojson.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.Topology()
}
