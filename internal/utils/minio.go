package utils

import (
	"tzchains/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// OpenMinIO：打开 S3 兼容对象存储客户端
// 约束：endpoint 为空时返回 nil, nil
func OpenMinIO(endpoint, accessKey, secretKey string, secure bool) (*minio.Client, error) {
	if endpoint == "" {
		return nil, nil
	}
	logger.L().Debug("minio_open", "endpoint", endpoint, "secure", secure)
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
}
