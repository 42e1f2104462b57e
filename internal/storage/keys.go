package storage

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// UserAssetPrefix 返回用户图片对象键的合法前缀。
func UserAssetPrefix(userID uint) string {
	return fmt.Sprintf("user-assets/%d/", userID)
}

// IsValidUserAssetKey 校验对象键是否为该用户的合法图片键。
// 拒绝路径穿越、超长键与非图片后缀。
func IsValidUserAssetKey(userID uint, key string) bool {
	if key == "" || !utf8.ValidString(key) {
		return false
	}
	if !strings.HasPrefix(key, UserAssetPrefix(userID)) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	if len(key) > 200 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(key))
	if !(strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".webp")) {
		return false
	}
	return true
}
