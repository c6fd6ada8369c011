package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage 把镜像写到本地目录，key 即相对路径。
type LocalStorage struct {
	baseDir string
	now     func() time.Time
}

// NewLocalStorage 创建本地存储，目录不存在时自动创建。
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/images"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, now: time.Now}, nil
}

// LocalBaseDir 返回存储根目录，供静态文件路由使用。
func (s *LocalStorage) LocalBaseDir() string {
	return s.baseDir
}

func (s *LocalStorage) SaveOutfit(ctx context.Context, data []byte, obj OutfitObject) (string, error) {
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
	absPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return key, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// DeleteDealer 删除 outfits/<dealer>/ 整个目录，包括数据库里已经没有记录的孤儿文件。
func (s *LocalStorage) DeleteDealer(ctx context.Context, dealerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	prefix, err := DealerPrefix(dealerID)
	if err != nil {
		return 0, err
	}
	dir, err := s.resolve(prefix)
	if err != nil {
		return 0, err
	}

	count := 0
	walkErr := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if errors.Is(walkErr, fs.ErrNotExist) {
		return 0, nil
	}
	if walkErr != nil {
		return 0, fmt.Errorf("walk dealer dir: %w", walkErr)
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("remove dealer dir: %w", err)
	}
	return count, nil
}

// resolve 将 key 映射到 baseDir 下的绝对路径，".." 无法越出 baseDir。
func (s *LocalStorage) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	if cleaned == "/" {
		return "", errEmptyKey
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

var _ Storage = (*LocalStorage)(nil)
var _ LocalBaseDirProvider = (*LocalStorage)(nil)
