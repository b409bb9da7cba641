// 包 source：几何数据源契约与适配器（Shapefile/ZIP/GeoJSON/内存）
package source

import (
	"errors"
	"tzchains/internal/geom"
)

// Shapefile 形状类型编码（与 ESRI 规范一致，仅列出本项目会遇到的）
const (
	TypeNull       = 0
	TypePoint      = 1
	TypePolyLine   = 3
	TypePolygon    = 5
	TypeMultiPoint = 8
)

// 文档注释：单条记录的原始多部件几何
// 背景：与 Shapefile 的存储方式一致，点为扁平列表，Parts 给出每个部件的起始下标；由 extract 负责切分为环。
// 约束：Type 由数据源照实填写，不在此处校验；Points/Parts 归调用方所有，不做拷贝。
type Shape struct {
	Type   int
	Points []geom.Point
	Parts  []int
}

// Record：一条带标识的几何记录（如一个 TZID 及其多边形）
type Record struct {
	ID    string
	Shape Shape
}

// 文档注释：几何数据源（迭代器）
// 背景：与 go-shp 的 Reader 保持同样的 Next/Err/Close 形态，便于不同格式统一接入。
// 约束：Record 只在 Next 返回 true 后有效；遍历结束后需检查 Err。
type GeometrySource interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

var (
	// ErrUnknownFormat 表示无法识别的数据源格式
	ErrUnknownFormat = errors.New("unknown source format")
	// ErrUnsupportedShape 表示 shapefile 中出现了无法转换的形状类型
	ErrUnsupportedShape = errors.New("unsupported shape type")
)

// ReadAll 读取数据源中的全部记录并关闭数据源
func ReadAll(src GeometrySource) ([]Record, error) {
	defer src.Close()
	var out []Record
	for src.Next() {
		out = append(out, src.Record())
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MemorySource：内存数据源，用于测试与程序内构造
type MemorySource struct {
	recs []Record
	pos  int
}

func NewMemorySource(recs ...Record) *MemorySource {
	return &MemorySource{recs: recs, pos: -1}
}

func (m *MemorySource) Next() bool {
	if m.pos+1 >= len(m.recs) {
		return false
	}
	m.pos++
	return true
}

func (m *MemorySource) Record() Record { return m.recs[m.pos] }
func (m *MemorySource) Err() error     { return nil }
func (m *MemorySource) Close() error   { return nil }

// PolygonRecord 由若干环构造一条多边形记录（每个环一个部件）
func PolygonRecord(id string, rings ...[]geom.Point) Record {
	var sh Shape
	sh.Type = TypePolygon
	for _, r := range rings {
		sh.Parts = append(sh.Parts, len(sh.Points))
		sh.Points = append(sh.Points, r...)
	}
	return Record{ID: id, Shape: sh}
}
