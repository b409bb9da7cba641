package source

import (
	"fmt"
	"strings"
	"tzchains/internal/geom"
	"tzchains/internal/logger"

	"github.com/jonas-p/go-shp"
)

// shpReader 抽象 go-shp 的普通与 ZIP 读取器
type shpReader interface {
	Next() bool
	Shape() (int, shp.Shape)
	Fields() []shp.Field
	Err() error
	Close() error
}

// 文档注释：Shapefile 数据源
// 背景：tz_world 等边界数据以 .shp/.shx/.dbf 或其 ZIP 归档发布；二进制格式解析完全交给 go-shp。
// 约束：以 idField 指定的属性列作为记录标识（默认 TZID，不区分大小写）；找不到该列时回退到第 0 列。
type ShapefileSource struct {
	r     shpReader
	attr  func(row, field int) string
	field int
	cur   Record
	err   error
}

// OpenShapefile 打开 .shp 文件（同目录需有 .shx/.dbf）
func OpenShapefile(path, idField string) (*ShapefileSource, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	s := &ShapefileSource{r: r, attr: r.ReadAttribute}
	s.field = fieldIndex(r.Fields(), idField)
	logger.L().Debug("source_shapefile_open", "path", path, "geometry_type", int(r.GeometryType), "id_field", s.field)
	return s, nil
}

// OpenShapefileZip 直接读取只包含一个 shapefile 的 ZIP 归档，无需解压到临时目录
func OpenShapefileZip(path, idField string) (*ShapefileSource, error) {
	z, err := shp.OpenZip(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile zip %s: %w", path, err)
	}
	s := &ShapefileSource{r: z}
	s.attr = func(_, field int) string { return z.Attribute(field) }
	s.field = fieldIndex(z.Fields(), idField)
	logger.L().Debug("source_shapefile_zip_open", "path", path, "id_field", s.field)
	return s, nil
}

func fieldIndex(fields []shp.Field, name string) int {
	if name == "" {
		name = "TZID"
	}
	for i, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f.String()), name) {
			return i
		}
	}
	return 0
}

func (s *ShapefileSource) Next() bool {
	if s.err != nil || !s.r.Next() {
		return false
	}
	n, sh := s.r.Shape()
	shape, err := convertShape(sh)
	if err != nil {
		s.err = fmt.Errorf("shape %d: %w", n, err)
		return false
	}
	s.cur = Record{ID: strings.TrimSpace(s.attr(n, s.field)), Shape: shape}
	return true
}

func (s *ShapefileSource) Record() Record { return s.cur }

func (s *ShapefileSource) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.r.Err()
}

func (s *ShapefileSource) Close() error { return s.r.Close() }

// 文档注释：把 go-shp 的形状转换为 Shape
// 约束：PolygonZ/PolygonM 有意只保留类型编码、丢弃坐标，由 extract 按非多边形拒绝（不支持带 Z/M 的边界数据）；
// 其他非多边形同样交由 extract 拒绝。
// 异常：无法识别的形状类型返回 ErrUnsupportedShape
func convertShape(s shp.Shape) (Shape, error) {
	switch v := s.(type) {
	case *shp.Polygon:
		return Shape{Type: TypePolygon, Points: convertPoints(v.Points), Parts: convertParts(v.Parts)}, nil
	case *shp.PolyLine:
		return Shape{Type: TypePolyLine, Points: convertPoints(v.Points), Parts: convertParts(v.Parts)}, nil
	case *shp.Point:
		return Shape{Type: TypePoint, Points: []geom.Point{{Lon: v.X, Lat: v.Y}}}, nil
	case *shp.MultiPoint:
		return Shape{Type: TypeMultiPoint, Points: convertPoints(v.Points)}, nil
	case *shp.PolygonZ:
		return Shape{Type: int(shp.POLYGONZ)}, nil
	case *shp.PolygonM:
		return Shape{Type: int(shp.POLYGONM)}, nil
	case *shp.Null, nil:
		return Shape{Type: TypeNull}, nil
	default:
		return Shape{}, fmt.Errorf("%w: %T", ErrUnsupportedShape, s)
	}
}

func convertPoints(ps []shp.Point) []geom.Point {
	out := make([]geom.Point, len(ps))
	for i, p := range ps {
		out[i] = geom.Point{Lon: p.X, Lat: p.Y}
	}
	return out
}

func convertParts(parts []int32) []int {
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i] = int(p)
	}
	return out
}
