package source

import (
	"os"
	"path/filepath"
	"testing"
	"tzchains/internal/geom"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collection = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"TZID":"Europe/Berlin"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[0,0]]]}},
 {"type":"Feature","id":"Asia/Tokyo","properties":{},
  "geometry":{"type":"MultiPolygon","coordinates":[[[[5,5],[5,6],[6,6],[5,5]]],[[[7,7],[7,8],[8,8],[7,7]],[[7.2,7.5],[7.5,7.8],[7.5,7.5],[7.2,7.5]]]]}},
 {"type":"Feature","properties":{"tzid":"Etc/Line"},
  "geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}},
 {"type":"Feature","properties":{},"geometry":null}
]}`

func TestParseGeoJSON(t *testing.T) {
	src, err := ParseGeoJSON([]byte(collection), "")
	require.NoError(t, err)
	recs, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, "Europe/Berlin", recs[0].ID)
	assert.Equal(t, TypePolygon, recs[0].Shape.Type)
	assert.Equal(t, []int{0}, recs[0].Shape.Parts)
	assert.Len(t, recs[0].Shape.Points, 4)

	assert.Equal(t, "Asia/Tokyo", recs[1].ID)
	assert.Equal(t, []int{0, 4, 8}, recs[1].Shape.Parts)
	assert.Equal(t, geom.Point{Lon: 7.2, Lat: 7.5}, recs[1].Shape.Points[8])

	assert.Equal(t, "Etc/Line", recs[2].ID)
	assert.Equal(t, TypePolyLine, recs[2].Shape.Type)

	assert.Equal(t, "feature-3", recs[3].ID)
	assert.Equal(t, TypeNull, recs[3].Shape.Type)
}

func TestParseGeoJSONInvalid(t *testing.T) {
	_, err := ParseGeoJSON([]byte(`{"type":`), "tzid")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zones.geojson")
	require.NoError(t, os.WriteFile(path, []byte(collection), 0o644))

	src, err := Open(path, "", "tzid")
	require.NoError(t, err)
	recs, err := ReadAll(src)
	require.NoError(t, err)
	assert.Len(t, recs, 4)

	_, err = Open(filepath.Join(dir, "zones.kml"), "", "")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = Open(path, "kml", "")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tz.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 16), shp.StringField("TZID", 32)}))
	square := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 0}}
	n := w.Write(&shp.Polygon{NumParts: 1, NumPoints: int32(len(square)), Parts: []int32{0}, Points: square})
	require.NoError(t, w.WriteAttribute(int(n), 0, "west"))
	require.NoError(t, w.WriteAttribute(int(n), 1, "Europe/Paris"))
	w.Close()

	src, err := Open(path, "", "tzid")
	require.NoError(t, err)
	recs, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Europe/Paris", recs[0].ID)
	assert.Equal(t, TypePolygon, recs[0].Shape.Type)
	assert.Equal(t, []int{0}, recs[0].Shape.Parts)
	assert.Equal(t, geom.Point{Lon: 0, Lat: 2}, recs[0].Shape.Points[1])
}

// shapeList 按顺序返回固定形状，属性列恒为 ID
type shapeList struct {
	shapes []shp.Shape
	i      int
}

func (l *shapeList) Next() bool {
	l.i++
	return l.i <= len(l.shapes)
}
func (l *shapeList) Shape() (int, shp.Shape) { return l.i - 1, l.shapes[l.i-1] }
func (l *shapeList) Fields() []shp.Field     { return nil }
func (l *shapeList) Err() error              { return nil }
func (l *shapeList) Close() error            { return nil }

func TestShapefileShapeTypes(t *testing.T) {
	pt := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 0}}
	src := &ShapefileSource{
		r: &shapeList{shapes: []shp.Shape{
			&shp.PolygonZ{NumParts: 1, NumPoints: 4, Parts: []int32{0}, Points: pt},
			&shp.PolygonM{NumParts: 1, NumPoints: 4, Parts: []int32{0}, Points: pt},
			&shp.Null{},
		}},
		attr: func(row, _ int) string { return string(rune('a' + row)) },
	}
	recs, err := ReadAll(src)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, Shape{Type: int(shp.POLYGONZ)}, recs[0].Shape)
	assert.Equal(t, Shape{Type: int(shp.POLYGONM)}, recs[1].Shape)
	assert.Equal(t, Shape{Type: TypeNull}, recs[2].Shape)
	assert.Equal(t, "c", recs[2].ID)

	src = &ShapefileSource{
		r:    &shapeList{shapes: []shp.Shape{&shp.Polygon{NumParts: 1, NumPoints: 4, Parts: []int32{0}, Points: pt}, &shp.PolyLineZ{}}},
		attr: func(int, int) string { return "Z" },
	}
	require.True(t, src.Next())
	assert.False(t, src.Next())
	assert.ErrorIs(t, src.Err(), ErrUnsupportedShape)
	assert.False(t, src.Next(), "stays stopped after an error")
	_, err = ReadAll(src)
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestMemorySource(t *testing.T) {
	r := []geom.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}, {Lon: 1, Lat: 1}, {Lon: 0, Lat: 0}}
	rec := PolygonRecord("Z", r, r)
	assert.Equal(t, []int{0, 4}, rec.Shape.Parts)

	recs, err := ReadAll(NewMemorySource(rec, PolygonRecord("Y", r)))
	require.NoError(t, err)
	assert.Equal(t, "Y", recs[1].ID)

	recs, err = ReadAll(NewMemorySource())
	require.NoError(t, err)
	assert.Empty(t, recs)
}
