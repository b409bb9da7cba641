// 包 objstore：把序列化结果上传到 MinIO / S3 兼容存储
package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"tzchains/internal/logger"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound 表示对象不存在
var ErrNotFound = errors.New("object not found")

// Store：桶与键前缀
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Key 返回带前缀的对象键
func (s *Store) Key(name string) string { return path.Join(s.prefix, name) }

// EnsureBucket 在桶不存在时创建
func (s *Store) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

// Put 整体写入一个对象
func (s *Store) Put(ctx context.Context, name string, data []byte, contentType string) error {
	key := s.Key(name)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return err
	}
	logger.L().Info("minio_put", "bucket", s.bucket, "key", key, "size", info.Size, "etag", info.ETag)
	return nil
}

// Get 读取整个对象
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key := s.Key(name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// ContentType 按对象名后缀给出内容类型
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".zst":
		return "application/zstd"
	case ".lz4":
		return "application/x-lz4"
	default:
		return "application/octet-stream"
	}
}
