package publisher

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// S3Scheme はオブジェクトストレージの出力先を表すスキームなのだ。
const S3Scheme = "s3://"

// IsObjectStoragePath は出力先がオブジェクトストレージかどうかを返すのだ。
func IsObjectStoragePath(p string) bool {
	return strings.HasPrefix(strings.ToLower(p), S3Scheme)
}

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// オブジェクトストレージ/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	if IsObjectStoragePath(baseDir) {
		u, err := url.Parse(baseDir)
		if err != nil {
			return "", fmt.Errorf("無効なオブジェクトストレージ URI です: %w", err)
		}

		// url.JoinPath はパス部分のみを安全に結合し、スキーム部分を保護します
		u.Path, err = url.JoinPath(u.Path, fileName)
		if err != nil {
			return "", fmt.Errorf("オブジェクトストレージのパス結合に失敗しました: %w", err)
		}
		return u.String(), nil
	}
	return filepath.Join(baseDir, fileName), nil
}

// SplitObjectPath は s3://bucket/key をバケット名とキーに分けるのだ。
func SplitObjectPath(p string) (bucket, key string, err error) {
	u, err := url.Parse(p)
	if err != nil || !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("無効なオブジェクトストレージ URI です: %s", p)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("バケット名とキーが必要です: %s", p)
	}
	return u.Host, key, nil
}

// IndexedFileName は "scene.png" と 3 から "scene_3.png" を作るのだ。
func IndexedFileName(base string, index int) string {
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, ext), index, ext)
}

// ExtensionFor は MIME タイプから画像の拡張子を選ぶのだ。
func ExtensionFor(mimeType string) string {
	preferred := map[string]string{"image/png": ".png", "image/jpeg": ".jpg", "image/webp": ".webp"}
	if ext, ok := preferred[mimeType]; ok {
		return ext
	}
	return ".png"
}
