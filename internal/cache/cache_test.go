package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint([]byte(`{"chains":[],"zones":{}}`))
	assert.Equal(t, a, Fingerprint([]byte(`{"chains":[],"zones":{}}`)))
	assert.NotEqual(t, a, Fingerprint([]byte(`{"chains":[[]],"zones":{}}`)))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "c:1.5:-0.25", CoordKey(1.5, -0.25))
	assert.NotEqual(t, CoordKey(1.0000001, 2), CoordKey(1.0000002, 2))
	assert.Equal(t, "ip:8.8.8.8", IPKey("8.8.8.8"))
}
