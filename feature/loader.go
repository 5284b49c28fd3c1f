package feature

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source 静态资源数据源接口
// 支持从不同来源读取启动资源（本地文件、HTTP 接口、S3 兼容存储等）：
// 地区集合、收入 CSV、特征列 schema 与模型文件都经由 Source 读取。
type Source interface {
	// Open 打开资源，调用方负责关闭
	// location 是数据源标识（文件路径、URL、S3 key 等）
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// FileSource 本地文件数据源
type FileSource struct{}

// NewFileSource 创建本地文件数据源
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Open 打开本地文件
func (s *FileSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return f, nil
}

// SourceFor 根据 location 的 scheme 选择数据源：
// http(s):// 走 HTTPSource，s3://bucket/key 走 S3Source（需注入 client），其余按本地路径处理。
func SourceFor(location string, s3 S3Client) (Source, string, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPSource(0), location, nil
	case strings.HasPrefix(location, "s3://"):
		if s3 == nil {
			return nil, "", fmt.Errorf("S3 客户端未设置: %s", location)
		}
		bucket, key, ok := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, "", fmt.Errorf("非法的 S3 地址: %s", location)
		}
		return NewS3Source(s3, bucket), key, nil
	default:
		return NewFileSource(), strings.TrimPrefix(location, "file://"), nil
	}
}

// ReadAll 打开并读取整个资源
func ReadAll(ctx context.Context, src Source, location string) ([]byte, error) {
	rc, err := src.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("读取资源失败: %w", err)
	}
	return data, nil
}
