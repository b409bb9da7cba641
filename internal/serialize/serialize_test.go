package serialize

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"tzchains/internal/geom"
	"tzchains/internal/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(xy ...float64) []geom.Point {
	out := make([]geom.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geom.Point{Lon: xy[i], Lat: xy[i+1]})
	}
	return out
}

func sample() *topology.Topology {
	t := topology.New()
	t.AddChain(pts(0, 0, 0, 2, 2, 2))
	t.AddChain(pts(2, 2, 2, 0))
	t.AddChain(pts(2, 0, 0, 0))
	t.AddChain(pts(2, 2, 4, 2, 4, 0, 2, 0))
	t.Zones["A"] = [][]topology.ChainRef{{{ID: 0}, {ID: 1}, {ID: 2}}}
	t.Zones["B"] = [][]topology.ChainRef{{{ID: 1, Reversed: true}, {ID: 3}}}
	t.Order = []string{"A", "B"}
	return t
}

const sampleJSON = `{"chains":[[[0,0],[0,2],[2,2]],[[2,2],[2,0]],[[2,0],[0,0]],[[2,2],[4,2],[4,0],[2,0]]],` +
	`"zones":{"A":[[[0,false],[1,false],[2,false]]],"B":[[[1,true],[3,false]]]}}`

func TestMarshalDocument(t *testing.T) {
	b, err := Marshal(sample())
	require.NoError(t, err)
	assert.Equal(t, sampleJSON, string(b))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sample()))
	assert.Equal(t, sampleJSON+"\n", buf.String())
}

func TestDecodeRoundTrip(t *testing.T) {
	got, err := Decode(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	want := sample()
	assert.Equal(t, want.Chains, got.Chains)
	assert.Equal(t, want.Zones, got.Zones)
	assert.Equal(t, []string{"A", "B"}, got.Order)

	again, err := Unmarshal([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"chains":`,
		"ref arity":      `{"chains":[[[0,0],[1,1]]],"zones":{"A":[[[0,false,1]]]}}`,
		"ref id type":    `{"chains":[[[0,0],[1,1]]],"zones":{"A":[[["0",false]]]}}`,
		"short chain":    `{"chains":[[[0,0]]],"zones":{}}`,
		"dangling chain": `{"chains":[[[0,0],[1,1]]],"zones":{"A":[[[3,false]]]}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestPackedRoundTrip(t *testing.T) {
	var points, index bytes.Buffer
	require.NoError(t, EncodePacked(&points, &index, sample()))
	assert.Equal(t, 11*pointSize, points.Len())
	assert.JSONEq(t, `{"points":11,"zones":{"A":[[[0,3],[3,5],[5,7]]],"B":[[[5,3],[7,11]]]}}`, index.String())

	got, err := DecodePacked(bytes.NewReader(points.Bytes()), bytes.NewReader(index.Bytes()))
	require.NoError(t, err)
	want := sample()
	assert.Equal(t, want.Chains, got.Chains)
	assert.Equal(t, want.Zones, got.Zones)
	assert.Equal(t, want.Order, got.Order)
}

func TestPackedMalformed(t *testing.T) {
	var points, index bytes.Buffer
	require.NoError(t, EncodePacked(&points, &index, sample()))

	_, err := DecodePacked(bytes.NewReader(points.Bytes()[:pointSize]), bytes.NewReader(index.Bytes()))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodePacked(bytes.NewReader(points.Bytes()), strings.NewReader(`{"points":11,"zones":{"A":[[[0,30]]]}}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodePacked(bytes.NewReader(points.Bytes()), strings.NewReader(`[`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, CompressionZSTD, CompressionFor("out/tz.json.zst"))
	assert.Equal(t, CompressionLZ4, CompressionFor("tz.bin.lz4"))
	assert.Equal(t, CompressionNone, CompressionFor("tz.json"))
}

func TestCompressedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"tz.json", "tz.json.zst", "tz.json.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			w, err := Create(path)
			require.NoError(t, err)
			require.NoError(t, Encode(w, sample()))
			require.NoError(t, w.Close())

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			if CompressionFor(name) == CompressionNone {
				assert.Equal(t, sampleJSON+"\n", string(raw))
			} else {
				assert.NotEqual(t, sampleJSON+"\n", string(raw))
			}

			r, err := Open(path)
			require.NoError(t, err)
			defer r.Close()
			b, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sampleJSON+"\n", string(b))
		})
	}
}
