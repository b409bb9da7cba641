package source

import (
	"fmt"
	"os"
	"strings"
	"tzchains/internal/geom"
	"tzchains/internal/logger"

	geojson "github.com/paulmach/go.geojson"
)

// 文档注释：GeoJSON 数据源（FeatureCollection）
// 背景：部分时区边界以 GeoJSON 发布（如 timezone-boundary-builder）；每个 Feature 转为一条记录。
// 约束：Polygon/MultiPolygon 的所有环按出现顺序展开为部件；其他几何类型保留对应的形状编码以便被拒绝。
type GeoJSONSource struct {
	MemorySource
}

// OpenGeoJSON 读取并解析整个文件；idField 为标识所在的属性名（默认 tzid，不区分大小写）
func OpenGeoJSON(path, idField string) (*GeoJSONSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGeoJSON(b, idField)
}

func ParseGeoJSON(b []byte, idField string) (*GeoJSONSource, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if idField == "" {
		idField = "tzid"
	}
	recs := make([]Record, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := featureID(f, idField)
		if id == "" {
			id = fmt.Sprintf("feature-%d", i)
		}
		recs = append(recs, Record{ID: id, Shape: geometryShape(f.Geometry)})
	}
	logger.L().Debug("source_geojson_parsed", "features", len(recs))
	return &GeoJSONSource{MemorySource: *NewMemorySource(recs...)}, nil
}

func featureID(f *geojson.Feature, field string) string {
	for k, v := range f.Properties {
		if strings.EqualFold(k, field) {
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		}
	}
	if s, ok := f.ID.(string); ok {
		return s
	}
	return ""
}

func geometryShape(g *geojson.Geometry) Shape {
	if g == nil {
		return Shape{Type: TypeNull}
	}
	var sh Shape
	switch g.Type {
	case geojson.GeometryPolygon:
		sh.Type = TypePolygon
		appendRings(&sh, g.Polygon)
	case geojson.GeometryMultiPolygon:
		sh.Type = TypePolygon
		for _, poly := range g.MultiPolygon {
			appendRings(&sh, poly)
		}
	case geojson.GeometryLineString, geojson.GeometryMultiLineString:
		sh.Type = TypePolyLine
	case geojson.GeometryPoint:
		sh.Type = TypePoint
	case geojson.GeometryMultiPoint:
		sh.Type = TypeMultiPoint
	default:
		sh.Type = TypeNull
	}
	return sh
}

func appendRings(sh *Shape, rings [][][]float64) {
	for _, ring := range rings {
		sh.Parts = append(sh.Parts, len(sh.Points))
		for _, c := range ring {
			if len(c) < 2 {
				continue
			}
			sh.Points = append(sh.Points, geom.Point{Lon: c[0], Lat: c[1]})
		}
	}
}
