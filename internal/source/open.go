package source

import (
	"path/filepath"
	"strings"
)

// 文档注释：按格式名或扩展名打开数据源
// 约束：format 为空时按扩展名推断（.shp/.zip/.geojson/.json）；无法识别返回 ErrUnknownFormat。
func Open(path, format, idField string) (GeometrySource, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".shp":
			format = "shp"
		case ".zip":
			format = "zip"
		case ".geojson", ".json":
			format = "geojson"
		}
	}
	switch strings.ToLower(format) {
	case "shp", "shapefile":
		return OpenShapefile(path, idField)
	case "zip":
		return OpenShapefileZip(path, idField)
	case "geojson":
		return OpenGeoJSON(path, idField)
	default:
		return nil, ErrUnknownFormat
	}
}
