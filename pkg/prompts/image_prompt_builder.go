package prompts

import (
	"hash/fnv"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// storyboardRenderingStyle は絵コンテ画像の描画方針なのだ。
const storyboardRenderingStyle = "storyboard frame, 16:9 widescreen composition, clear staging, cinematic lighting, film still"

// ImagePromptBuilder は、シーン情報とスタイルから画像生成用のプロンプトを構築します。
type ImagePromptBuilder struct {
	defaultSuffix string // "cinematic, high quality" 等の共通サフィックス
}

// NewImagePromptBuilder は新しい ImagePromptBuilder を生成します。
func NewImagePromptBuilder(suffix string) *ImagePromptBuilder {
	return &ImagePromptBuilder{defaultSuffix: suffix}
}

// BuildScene は、1シーン分の UserPrompt、NegativePrompt、およびシード値を生成します。
// scenePrompt が空なら字コンテのカット割りをそのまま使うのだ。
func (pb *ImagePromptBuilder) BuildScene(scene domain.Scene, scenePrompt string) (string, string, int64) {
	base := strings.TrimSpace(scenePrompt)
	if base == "" {
		base = strings.TrimSpace(scene.CutDescription)
	}

	parts := []string{base, storyboardRenderingStyle, pb.defaultSuffix}
	var clean []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			clean = append(clean, s)
		}
	}

	return strings.Join(clean, ", "), domain.DefaultNegativePrompt, SeedFor(scene)
}

// SeedFor はシーン番号と内容から決定論的なシード値を導くのだ。同じシーンなら同じ絵柄を狙えるのだ。
func SeedFor(scene domain.Scene) int64 {
	h := fnv.New64a()
	h.Write([]byte(scene.CutDescription))
	h.Write([]byte{byte(scene.SceneNumber)})
	return int64(h.Sum64() & 0x7fffffff)
}
