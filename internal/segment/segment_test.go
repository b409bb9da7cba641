package segment

import (
	"errors"
	"testing"
	"tzchains/internal/geom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring(xy ...float64) geom.Ring {
	out := make(geom.Ring, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geom.Point{Lon: xy[i], Lat: xy[i+1]})
	}
	return out
}

func twoSquares() []geom.Zone {
	return []geom.Zone{
		{ID: "A", Rings: []geom.Ring{ring(0, 0, 0, 2, 2, 2, 2, 0, 0, 0)}},
		{ID: "B", Rings: []geom.Ring{ring(2, 0, 2, 2, 4, 2, 4, 0, 2, 0)}},
	}
}

func TestCanonicalizeSharedEdge(t *testing.T) {
	tbl, err := Canonicalize(twoSquares())
	require.NoError(t, err)
	assert.Equal(t, 7, tbl.Len())
	assert.Equal(t, 8, tbl.Edges())

	rec, dir, ok := tbl.Lookup(geom.Point{Lon: 2, Lat: 2}, geom.Point{Lon: 2, Lat: 0})
	require.True(t, ok)
	assert.True(t, rec.Shared())
	assert.Equal(t, geom.Reverse, dir)
	assert.Equal(t, EdgeRef{Zone: "A", Ring: 0, Edge: 2}, *rec.Slot(dir))
	assert.Equal(t, EdgeRef{Zone: "B", Ring: 0, Edge: 0}, *rec.Slot(dir.Opposite()))
	assert.False(t, rec.HasChain())

	shared := 0
	tbl.Records(func(r *Record) {
		if r.Shared() {
			shared++
		}
	})
	assert.Equal(t, 1, shared)
}

func TestCanonicalizeOrderIndependent(t *testing.T) {
	z := twoSquares()
	t1, err := Canonicalize(z)
	require.NoError(t, err)
	t2, err := Canonicalize([]geom.Zone{z[1], z[0]})
	require.NoError(t, err)
	assert.Equal(t, t1.recs, t2.recs)
}

func TestAddNotIdempotent(t *testing.T) {
	tbl := NewTable()
	r := ring(0, 0, 0, 1, 1, 1, 0, 0)
	require.NoError(t, tbl.Add("A", 0, r))
	err := tbl.Add("A", 0, r)
	var de *DuplicateEdgeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, EdgeRef{Zone: "A", Ring: 0, Edge: 0}, de.Existing)
	assert.Equal(t, de.Existing, de.Claim)
}

func TestDuplicateDirectedEdge(t *testing.T) {
	_, err := Canonicalize([]geom.Zone{
		{ID: "A", Rings: []geom.Ring{ring(0, 0, 0, 2, 2, 2, 2, 0, 0, 0)}},
		{ID: "B", Rings: []geom.Ring{ring(2, 0, 4, 0, 4, 2, 2, 2, 2, 0)}},
	})
	var de *DuplicateEdgeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "A", de.Existing.Zone)
	assert.Equal(t, 2, de.Existing.Edge)
	assert.Equal(t, EdgeRef{Zone: "B", Ring: 0, Edge: 3}, de.Claim)
	assert.Equal(t, geom.Reverse, de.Direction)
	assert.Contains(t, de.Error(), "duplicate reverse edge")
}

func TestDegenerateEdge(t *testing.T) {
	_, err := Canonicalize([]geom.Zone{{ID: "A", Rings: []geom.Ring{ring(0, 0, 0, 1, 0, 1, 1, 1, 0, 0)}}})
	var ee *EdgeError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, EdgeRef{Zone: "A", Ring: 0, Edge: 1}, ee.At)
	assert.Equal(t, geom.Point{Lon: 0, Lat: 1}, ee.Point)
}
