package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"mailcanvas/internal/email"
	"mailcanvas/internal/storage"
)

// ObjectReader 是图片内联所需的最小对象存储接口。
type ObjectReader interface {
	ReadObject(ctx context.Context, objectKey string) ([]byte, string, error)
}

// InlineImages 把文档中引用对象存储的图片替换为 data URI，使渲染结果自包含。
// 约定：
// - 外链（http/https/data）原样保留
// - 对象不存在或键不合法 => 清空该图片地址并记录缺失键，渲染继续
// - Bucket 不存在等系统错误 => 直接返回 error
func InlineImages(ctx context.Context, store ObjectReader, ownerID uint, doc email.Document) (email.Document, []string, error) {
	out := doc.Clone()

	var missing []string
	seen := make(map[string]struct{})
	record := func(key string) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		missing = append(missing, key)
	}

	inline := func(src string) (string, error) {
		if src == "" || isExternalSrc(src) {
			return src, nil
		}
		if !storage.IsValidUserAssetKey(ownerID, src) {
			record(src)
			return "", nil
		}
		data, contentType, err := store.ReadObject(ctx, src)
		if err != nil {
			if storage.IsNoSuchBucket(err) {
				return "", fmt.Errorf("storage bucket missing: %w", err)
			}
			if storage.IsNoSuchKey(err) {
				record(src)
				return "", nil
			}
			return "", fmt.Errorf("fetch image %q: %w", src, err)
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		return fmt.Sprintf("data:%s;base64,%s", contentType, encoded), nil
	}

	var walkErr error
	var walk func(blocks []email.Block)
	walk = func(blocks []email.Block) {
		for _, b := range blocks {
			if walkErr != nil {
				return
			}
			switch block := b.(type) {
			case *email.Image:
				src, err := inline(block.Src)
				if err != nil {
					walkErr = err
					return
				}
				block.Src = src
			case *email.Logo:
				src, err := inline(block.Src)
				if err != nil {
					walkErr = err
					return
				}
				block.Src = src
			case *email.Layout:
				for _, col := range block.Columns {
					walk(col)
				}
			}
		}
	}
	walk(out.Header)
	walk(out.Body)
	walk(out.Footer)
	if walkErr != nil {
		return email.Document{}, missing, walkErr
	}

	return out, missing, nil
}

func isExternalSrc(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:")
}
