package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"tzchains/internal/cache"
	"tzchains/internal/geom"
	"tzchains/internal/ipgeo"
	"tzchains/internal/middleware"
	"tzchains/internal/pipeline"
	"tzchains/internal/serialize"
	"tzchains/internal/source"

	gojson "github.com/goccy/go-json"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *memCache) Get(_ context.Context, k string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[k]
	return v, ok
}

func (c *memCache) Set(_ context.Context, k, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = v
}

func square(x0, y0, x1, y1 float64, ccw bool) []geom.Point {
	if ccw {
		return []geom.Point{{Lon: x0, Lat: y0}, {Lon: x0, Lat: y1}, {Lon: x1, Lat: y1}, {Lon: x1, Lat: y0}, {Lon: x0, Lat: y0}}
	}
	return []geom.Point{{Lon: x0, Lat: y0}, {Lon: x1, Lat: y0}, {Lon: x1, Lat: y1}, {Lon: x0, Lat: y1}, {Lon: x0, Lat: y0}}
}

func newTestService(t *testing.T, zc *memCache, loc ipgeo.Locator) *Service {
	t.Helper()
	src := source.NewMemorySource(
		source.PolygonRecord("A", square(0, 0, 2, 2, true)),
		source.PolygonRecord("B", square(2, 0, 4, 2, true)),
	)
	res, err := pipeline.Build(context.Background(), src, true)
	require.NoError(t, err)
	var c cache.ZoneCache
	if zc != nil {
		c = zc
	}
	s, err := NewService(res.Topology, c, loc)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func decodeZone(t *testing.T, rec *httptest.ResponseRecorder) zoneResult {
	t.Helper()
	var z zoneResult
	require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &z))
	return z
}

func TestZoneByCoord(t *testing.T) {
	h := BuildRoutes(newTestService(t, nil, nil), nil)

	cases := []struct {
		url   string
		zone  string
		found bool
	}{
		{"/zone?lat=1&lon=1", "A", true},
		{"/zone?lat=1&lon=3", "B", true},
		{"/zone?lat=1&lon=2", "A", true},
		{"/zone?lat=5&lon=5", "", false},
		{"/zone?lat=1&lon=361", "A", true},
	}
	for _, c := range cases {
		rec := get(t, h, c.url)
		require.Equal(t, http.StatusOK, rec.Code, c.url)
		z := decodeZone(t, rec)
		assert.Equal(t, c.zone, z.Zone, c.url)
		assert.Equal(t, c.found, z.Found, c.url)
	}

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/zone?lat=91&lon=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/zone?lat=x&lon=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/zone?lat=1").Code)
}

func TestZoneByIP(t *testing.T) {
	loc := ipgeo.Static{"1.1.1.1": {1, 3}}
	h := BuildRoutes(newTestService(t, nil, loc), nil)

	z := decodeZone(t, get(t, h, "/zone?ip=1.1.1.1"))
	assert.Equal(t, "B", z.Zone)
	assert.Equal(t, "ip", z.Source)

	rec := get(t, h, "/zone?ip=2.2.2.2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeZone(t, rec).Found)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/zone?ip=bogus").Code)

	req := httptest.NewRequest(http.MethodGet, "/zone", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 10.0.0.1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	z = decodeZone(t, rec)
	assert.Equal(t, "visitor", z.Source)
	assert.Equal(t, "B", z.Zone)

	noLoc := BuildRoutes(newTestService(t, nil, nil), nil)
	assert.Equal(t, http.StatusNotImplemented, get(t, noLoc, "/zone?ip=1.1.1.1").Code)
}

func TestZoneFromEdgeHeaders(t *testing.T) {
	h := middleware.WithEdgeGeo(BuildRoutes(newTestService(t, nil, nil), nil))
	req := httptest.NewRequest(http.MethodGet, "/zone", nil)
	req.Header.Set("X-EO-Geo-Latitude", "1")
	req.Header.Set("X-EO-Geo-Longitude", "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	z := decodeZone(t, rec)
	assert.Equal(t, "edge", z.Source)
	assert.Equal(t, "A", z.Zone)
}

func TestZoneCache(t *testing.T) {
	zc := &memCache{m: map[string]string{}}
	h := BuildRoutes(newTestService(t, zc, nil), nil)

	z := decodeZone(t, get(t, h, "/zone?lat=1&lon=1"))
	assert.Equal(t, "A", z.Zone)
	require.Len(t, zc.m, 1)

	for k := range zc.m {
		zc.m[k] = `{"zone":"cached","found":true,"lat":1,"lon":1,"source":"query"}`
	}
	z = decodeZone(t, get(t, h, "/zone?lat=1&lon=1"))
	assert.Equal(t, "cached", z.Zone)
}

func TestPolygons(t *testing.T) {
	h := BuildRoutes(newTestService(t, nil, nil), nil)

	rec := get(t, h, "/polygons?zone=A,B")
	require.Equal(t, http.StatusOK, rec.Code)
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	ring := fc.Features[0].Geometry.Polygon[0]
	assert.Len(t, ring, 7)
	assert.Equal(t, ring[0], ring[len(ring)-1])

	rec = get(t, h, "/polygons?zone=A")
	fc, err = geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Len(t, fc.Features[0].Geometry.Polygon[0], 5)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/polygons?zone=X").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/polygons").Code)
}

func TestTopologyAndStats(t *testing.T) {
	s := newTestService(t, nil, nil)
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) })
	}
	h := BuildRoutes(s, nil)

	rec := get(t, h, "/topology")
	require.Equal(t, http.StatusOK, rec.Code)
	back, err := serialize.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, s.Topology.Chains, back.Chains)
	assert.NotEmpty(t, rec.Header().Get("etag"))

	var st map[string]any
	require.NoError(t, gojson.Unmarshal(get(t, h, "/stats").Body.Bytes(), &st))
	assert.EqualValues(t, 2, st["zones"])
	assert.EqualValues(t, 4, st["chains"])
	assert.EqualValues(t, 1, st["shared_chains"])

	guarded := BuildRoutes(s, blocked)
	assert.Equal(t, http.StatusForbidden, get(t, guarded, "/topology").Code)
	assert.Equal(t, http.StatusForbidden, get(t, guarded, "/metrics").Code)
	assert.Equal(t, http.StatusOK, get(t, guarded, "/stats").Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	assert.Equal(t, "9.9.9.9", getClientIP(req))
	req.Header.Set("Forwarded", `for="[2001:db8::1]";proto=https`)
	assert.Equal(t, "2001:db8::1", getClientIP(req))
	req.Header.Set("X-Real-IP", "8.8.4.4")
	assert.Equal(t, "8.8.4.4", getClientIP(req))
}

func TestZoneCoordSystem(t *testing.T) {
	h := BuildRoutes(newTestService(t, nil, nil), nil)

	rec := get(t, h, "/zone?lat=1&lon=3&coord=gcj02")
	require.Equal(t, http.StatusOK, rec.Code)
	z := decodeZone(t, rec)
	assert.Equal(t, "B", z.Zone)
	assert.Equal(t, 3.0, z.Lon, "outside China the coordinate is unchanged")

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/zone?lat=1&lon=3&coord=mars").Code)
}
