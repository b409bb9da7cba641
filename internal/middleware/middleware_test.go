package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRateLimit(t *testing.T) {
	h := RateLimit(ok, 2)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(ok, 0)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestAllowlist(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewAllowlist(l, "10.0.0.1, bad", "192.168.0.0/16", "X-Forwarded-For")
	h := a.Guard(ok)

	cases := []struct {
		remote, xff string
		want        int
	}{
		{"10.0.0.1:1234", "", http.StatusNoContent},
		{"192.168.4.5:80", "", http.StatusNoContent},
		{"8.8.8.8:80", "", http.StatusForbidden},
		{"8.8.8.8:80", "10.0.0.1, 8.8.8.8", http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/topology", nil)
		req.RemoteAddr = c.remote
		if c.xff != "" {
			req.Header.Set("X-Forwarded-For", c.xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, c.want, rec.Code, "%s %s", c.remote, c.xff)
	}

	assert.True(t, NewAllowlist(l, "", "", "").Empty())
}

func TestEdgeGeo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/zone", nil)
	req.Header.Set("X-EO-Geo-Latitude", "31.2")
	req.Header.Set("X-EO-Geo-Longitude", "121.5")
	req.Header.Set("X-EO-Client-IP", "1.2.3.4")

	var got EdgeGeo
	var found bool
	WithEdgeGeo(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = EdgeGeoFrom(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, found)
	assert.True(t, got.HasCoord)
	assert.Equal(t, 31.2, got.Lat)
	assert.Equal(t, 121.5, got.Lon)
	assert.Equal(t, "1.2.3.4", got.ClientIP)

	req = httptest.NewRequest(http.MethodGet, "/zone", nil)
	req.Header.Set("X-EO-Geo-Latitude", "x")
	assert.False(t, ParseEdgeGeo(req).HasCoord)
}
