package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Louistrash/kaartmodellen/internal/config"
)

// r2Endpoint 优先使用显式 endpoint，否则按 account id 拼出 Cloudflare 的默认地址。
func r2Endpoint(endpoint, accountID string) (string, error) {
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		return endpoint, nil
	}
	if accountID = strings.TrimSpace(accountID); accountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID), nil
	}
	return "", errors.New("storage: missing R2 endpoint or account id")
}

func NewR2Storage(cfg config.Config) (Storage, error) {
	bucket := strings.TrimSpace(cfg.StorageR2Bucket)
	if bucket == "" {
		return nil, errors.New("storage: missing R2 bucket")
	}
	endpoint, err := r2Endpoint(cfg.StorageR2Endpoint, cfg.StorageR2AccountID)
	if err != nil {
		return nil, err
	}
	region := strings.TrimSpace(cfg.StorageR2Region)
	if region == "" {
		region = "auto"
	}

	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        endpoint,
		AccessKeyID:     cfg.StorageR2AccessKeyID,
		SecretAccessKey: cfg.StorageR2SecretAccessKey,
		ForcePathStyle:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: R2: %w", err)
	}
	return newRemoteStorage(&s3Bucket{client: client, bucket: bucket}, cfg.StorageR2Prefix), nil
}
