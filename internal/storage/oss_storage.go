package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// ossBucket 适配阿里云 OSS，删除不存在的对象同样返回成功。
type ossBucket struct {
	bucket *oss.Bucket
}

func (b *ossBucket) put(ctx context.Context, key string, data []byte, contentType string) error {
	return b.bucket.PutObject(key, bytes.NewReader(data), oss.WithContext(ctx), oss.ContentType(contentType))
}

func (b *ossBucket) remove(ctx context.Context, key string) error {
	return b.bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (b *ossBucket) listPage(ctx context.Context, prefix, token string) ([]string, string, error) {
	options := []oss.Option{oss.WithContext(ctx), oss.Prefix(prefix), oss.MaxKeys(deleteBatchSize)}
	if token != "" {
		options = append(options, oss.ContinuationToken(token))
	}
	result, err := b.bucket.ListObjectsV2(options...)
	if err != nil {
		return nil, "", err
	}
	keys := make([]string, 0, len(result.Objects))
	for _, obj := range result.Objects {
		keys = append(keys, obj.Key)
	}
	if !result.IsTruncated {
		return keys, "", nil
	}
	return keys, result.NextContinuationToken, nil
}

func (b *ossBucket) removeBatch(ctx context.Context, keys []string) error {
	_, err := b.bucket.DeleteObjects(keys, oss.WithContext(ctx), oss.DeleteObjectsQuiet(true))
	return err
}

func NewOSSStorage(cfg config.Config) (Storage, error) {
	endpoint := strings.TrimSpace(cfg.StorageOSSEndpoint)
	if endpoint == "" {
		return nil, errors.New("storage: missing OSS endpoint")
	}
	bucketName := strings.TrimSpace(cfg.StorageOSSBucket)
	if bucketName == "" {
		return nil, errors.New("storage: missing OSS bucket")
	}
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing OSS credentials")
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("storage: create OSS client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: open OSS bucket: %w", err)
	}
	return newRemoteStorage(&ossBucket{bucket: bucket}, cfg.StorageOSSPrefix), nil
}
