// Package storage 保存 dealer outfit 图片的镜像副本。
//
// 所有后端共享同一 key 布局：outfits/<dealer>/stage<N>/<unix纳秒>.<ext>，
// 因此一个 dealer 的全部镜像可以按前缀列举和删除。
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Louistrash/kaartmodellen/internal/config"
)

const (
	// TypeLocal 本地文件系统
	TypeLocal = "local"
	// TypeS3 Amazon S3 或兼容后端
	TypeS3 = "s3"
	// TypeOSS 阿里云 OSS
	TypeOSS = "oss"
	// TypeCOS 腾讯云 COS
	TypeCOS = "cos"
	// TypeR2 Cloudflare R2
	TypeR2 = "r2"
)

// OutfitObject 描述一张要镜像的 outfit 图片。Extension 不含前导点，为空时使用 bin。
type OutfitObject struct {
	DealerID  string
	Stage     int
	Extension string
}

// Storage 持久化 outfit 镜像并返回后端 key（本地存储为相对路径）。
//
// Delete 和 DeleteDealer 都是幂等的，key 不存在不算错误。
type Storage interface {
	SaveOutfit(ctx context.Context, data []byte, obj OutfitObject) (string, error)
	Delete(ctx context.Context, key string) error
	// DeleteDealer 删除 dealer 前缀下的全部对象，返回删除数量。
	DeleteDealer(ctx context.Context, dealerID string) (int, error)
}

// LocalBaseDirProvider 由可以直接通过 HTTP 提供文件的本地存储实现。
type LocalBaseDirProvider interface {
	LocalBaseDir() string
}

// NewStorage 根据配置创建存储后端。
func NewStorage(cfg config.Config) (Storage, error) {
	switch typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType)); typeName {
	case "", TypeLocal:
		return NewLocalStorage(cfg.StorageLocalDir)
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeOSS:
		return NewOSSStorage(cfg)
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeR2:
		return NewR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
