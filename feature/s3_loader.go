package feature

import (
	"context"
	"fmt"
	"io"
)

// S3Client S3 兼容协议客户端接口（不直接依赖具体 SDK，支持依赖注入）
// S3 兼容协议支持 AWS S3、阿里云 OSS、腾讯云 COS、MinIO 等
type S3Client interface {
	// GetObject 获取对象内容
	// bucket 是存储桶名称
	// key 是对象键（文件路径）
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// S3Source S3 兼容协议数据源
type S3Source struct {
	client S3Client
	bucket string
}

// NewS3Source 创建 S3 兼容协议数据源
//
// 用法：
//
//	s3Client := &MyS3Client{...}
//	src := feature.NewS3Source(s3Client, "my-bucket")
//	rc, err := src.Open(ctx, "homeprice/v1/median_income_by_zip_code.csv")
func NewS3Source(client S3Client, bucket string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
	}
}

// Open 从 S3 兼容存储读取对象
func (s *S3Source) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, fmt.Errorf("S3 客户端未设置")
	}
	reader, err := s.client.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("从 S3 兼容存储获取对象失败: %w", err)
	}
	return reader, nil
}
