package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/tencentyun/cos-go-sdk-v5"
)

// cosBucket 适配腾讯云 COS。
type cosBucket struct {
	client *cos.Client
}

func closeBody(resp *cos.Response) {
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}

func (b *cosBucket) put(ctx context.Context, key string, data []byte, contentType string) error {
	resp, err := b.client.Object.Put(ctx, key, bytes.NewReader(data), &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType},
	})
	closeBody(resp)
	return err
}

func (b *cosBucket) remove(ctx context.Context, key string) error {
	resp, err := b.client.Object.Delete(ctx, key)
	closeBody(resp)
	if err != nil && !cos.IsNotFoundError(err) {
		return err
	}
	return nil
}

func (b *cosBucket) listPage(ctx context.Context, prefix, marker string) ([]string, string, error) {
	result, resp, err := b.client.Bucket.Get(ctx, &cos.BucketGetOptions{
		Prefix:  prefix,
		Marker:  marker,
		MaxKeys: deleteBatchSize,
	})
	closeBody(resp)
	if err != nil {
		return nil, "", err
	}
	keys := make([]string, 0, len(result.Contents))
	for _, obj := range result.Contents {
		keys = append(keys, obj.Key)
	}
	if !result.IsTruncated || len(keys) == 0 {
		return keys, "", nil
	}
	// 未指定 delimiter 时 COS 可能不返回 NextMarker，用最后一个 key 继续
	next := result.NextMarker
	if next == "" {
		next = keys[len(keys)-1]
	}
	return keys, next, nil
}

func (b *cosBucket) removeBatch(ctx context.Context, keys []string) error {
	objects := make([]cos.Object, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, cos.Object{Key: key})
	}
	result, resp, err := b.client.Object.DeleteMulti(ctx, &cos.ObjectDeleteMultiOptions{Quiet: true, Objects: objects})
	closeBody(resp)
	if err != nil {
		return err
	}
	if result != nil && len(result.Errors) > 0 {
		first := result.Errors[0]
		return fmt.Errorf("%d keys failed, first %s: %s", len(result.Errors), first.Key, first.Message)
	}
	return nil
}

func NewCOSStorage(cfg config.Config) (Storage, error) {
	baseURL := strings.TrimSpace(cfg.StorageCOSBucketURL)
	if baseURL == "" {
		return nil, errors.New("storage: missing COS bucket URL")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse COS bucket URL: %w", err)
	}
	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if secretID == "" || secretKey == "" {
		return nil, errors.New("storage: missing COS credentials")
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: parsedURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{SecretID: secretID, SecretKey: secretKey},
	})
	return newRemoteStorage(&cosBucket{client: client}, cfg.StorageCOSPrefix), nil
}
