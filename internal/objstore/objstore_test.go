package objstore

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType("tz.json"))
	assert.Equal(t, "application/zstd", ContentType("tz.json.zst"))
	assert.Equal(t, "application/x-lz4", ContentType("tz.json.lz4"))
	assert.Equal(t, "application/octet-stream", ContentType("points.bin"))
}

func TestKey(t *testing.T) {
	s := NewStore(nil, "b", "releases/2024a")
	assert.Equal(t, "releases/2024a/tz.json", s.Key("tz.json"))
}

// TestStore_Integration requires a running MinIO instance.
func TestStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}
	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	s := NewStore(client, "test-tzchains", "it")
	require.NoError(t, s.EnsureBucket(ctx))
	data := []byte(`{"chains":[],"zones":{}}`)
	require.NoError(t, s.Put(ctx, "tz.json", data, ContentType("tz.json")))
	got, err := s.Get(ctx, "tz.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
