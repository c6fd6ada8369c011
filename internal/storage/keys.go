package storage

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

const outfitRoot = "outfits"

var errEmptyKey = errors.New("empty object key")

// DealerPrefix 返回 dealer 全部镜像共享的 key 前缀，以 "/" 结尾。
func DealerPrefix(dealerID string) (string, error) {
	token := keyToken(dealerID)
	if token == "" {
		return "", fmt.Errorf("storage: invalid dealer id %q", dealerID)
	}
	return outfitRoot + "/" + token + "/", nil
}

// outfitKey 生成 outfits/<dealer>/stage<N>/<unix纳秒>.<ext>。
func outfitKey(obj OutfitObject, now time.Time) (string, error) {
	prefix, err := DealerPrefix(obj.DealerID)
	if err != nil {
		return "", err
	}
	if obj.Stage <= 0 {
		return "", fmt.Errorf("storage: invalid stage %d", obj.Stage)
	}
	filename := fmt.Sprintf("%d.%s", now.UTC().UnixNano(), normalizeExtension(obj.Extension))
	return prefix + path.Join(fmt.Sprintf("stage%d", obj.Stage), filename), nil
}

// keyToken 只保留字母、数字、- 和 _，id 的大小写保持不变。
func keyToken(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, strings.TrimSpace(value))
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(keyToken(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	if ext == "" {
		return "bin"
	}
	return ext
}

func contentTypeFor(key string) string {
	if typeName := mime.TypeByExtension(path.Ext(key)); typeName != "" {
		return typeName
	}
	return "application/octet-stream"
}

// cleanKey 去掉首尾空白和前导 "/"，拒绝空 key。
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errEmptyKey
	}
	return key, nil
}

// joinPrefix 把配置的 bucket 前缀拼到 key 前面，保留 key 末尾的 "/"。
func joinPrefix(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	prefix = trimPrefix(prefix)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func trimPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
