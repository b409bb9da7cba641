package api

import (
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opaque 解码 PNG 并返回每个像素是否不透明
func opaque(t *testing.T, h http.Handler, url string) [][]bool {
	t.Helper()
	rec := get(t, h, url)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("content-type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	b := img.Bounds()
	out := make([][]bool, b.Dy())
	for y := range out {
		out[y] = make([]bool, b.Dx())
		for x := range out[y] {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y][x] = a != 0
		}
	}
	return out
}

func TestTile(t *testing.T) {
	h := BuildRoutes(newTestService(t, nil, nil), nil)

	assert.Equal(t, [][]bool{
		{true, true, false, false},
		{true, true, false, false},
	}, opaque(t, h, "/tile?zone=A&bbox=0,0,4,2&w=4&h=2"))

	assert.Equal(t, [][]bool{
		{false, false, false, false, false, false},
		{false, true, true, true, true, false},
		{false, true, true, true, true, false},
		{false, false, false, false, false, false},
	}, opaque(t, h, "/tile?zone=A,B&bbox=-1,-1,5,3&w=6&h=4&color=%23ff0000"))

	rec := get(t, h, "/tile?zone=B&bbox=0,0,4,2&w=4&h=2&color=00ff00")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	r, g, b, a := img.At(3, 0).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0, 0xffff}, []uint32{r, g, b, a})
}

func TestTileBadRequests(t *testing.T) {
	h := BuildRoutes(newTestService(t, nil, nil), nil)
	for _, url := range []string{
		"/tile?bbox=0,0,4,2",
		"/tile?zone=A",
		"/tile?zone=A&bbox=0,0,4",
		"/tile?zone=A&bbox=0,x,4,2",
		"/tile?zone=A&bbox=0,2,4,0",
		"/tile?zone=A&bbox=0,0,4,2&w=0",
		"/tile?zone=A&bbox=0,0,4,2&h=5000",
		"/tile?zone=A&bbox=0,0,4,2&color=red",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, h, url).Code, url)
	}
	assert.Equal(t, http.StatusNotFound, get(t, h, "/tile?zone=X&bbox=0,0,4,2").Code)
}
