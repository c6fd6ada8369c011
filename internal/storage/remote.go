package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// S3 DeleteObjects、OSS DeleteObjects 和 COS DeleteMulti 单次最多 1000 个 key
const deleteBatchSize = 1000

// bucketClient 是各云厂商 SDK 的最小适配层，key 均已包含配置的前缀。
type bucketClient interface {
	put(ctx context.Context, key string, data []byte, contentType string) error
	remove(ctx context.Context, key string) error
	// listPage 返回 prefix 下的一页 key，next 为空表示没有下一页。
	listPage(ctx context.Context, prefix, token string) (keys []string, next string, err error)
	removeBatch(ctx context.Context, keys []string) error
}

// remoteStorage 在 bucketClient 之上实现 key 布局和前缀处理，S3、R2、OSS、COS 共用。
type remoteStorage struct {
	client bucketClient
	prefix string
	now    func() time.Time
}

func newRemoteStorage(client bucketClient, prefix string) *remoteStorage {
	return &remoteStorage{client: client, prefix: trimPrefix(prefix), now: time.Now}
}

func (s *remoteStorage) SaveOutfit(ctx context.Context, data []byte, obj OutfitObject) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty payload")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := outfitKey(obj, s.now())
	if err != nil {
		return "", err
	}
	key = joinPrefix(s.prefix, key)
	if err := s.client.put(ctx, key, data, contentTypeFor(key)); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// Delete 接收 SaveOutfit 返回的完整 key，不再重复拼接前缀。
func (s *remoteStorage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.client.remove(ctx, key); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *remoteStorage) DeleteDealer(ctx context.Context, dealerID string) (int, error) {
	prefix, err := DealerPrefix(dealerID)
	if err != nil {
		return 0, err
	}
	return deleteByPrefix(ctx, s.client, joinPrefix(s.prefix, prefix))
}

func deleteByPrefix(ctx context.Context, client bucketClient, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("refusing to delete with an empty prefix")
	}
	deleted := 0
	token := ""
	for {
		keys, next, err := client.listPage(ctx, prefix, token)
		if err != nil {
			return deleted, fmt.Errorf("list objects: %w", err)
		}
		for start := 0; start < len(keys); start += deleteBatchSize {
			end := min(start+deleteBatchSize, len(keys))
			if err := client.removeBatch(ctx, keys[start:end]); err != nil {
				return deleted, fmt.Errorf("delete objects: %w", err)
			}
			deleted += end - start
		}
		if next == "" {
			return deleted, nil
		}
		token = next
	}
}

var _ Storage = (*remoteStorage)(nil)
