package prompts

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// Builder は、AIプロンプトを構築する契約です。
type Builder interface {
	BuildStoryboard(cfg domain.GenerationConfig) (PromptText, error)
	BuildVideo(req domain.VideoPromptRequest) (PromptText, Mode, error)
	BuildScenePrompt(scene domain.Scene) (PromptText, error)
}

// TextPromptBuilder はテンプレートの構成を管理し、モード選択のロジックを内包します。
// 純粋なテキスト構築だけを行い、ネットワークやストレージには触れないのだ。
type TextPromptBuilder struct {
	templates map[Mode][2]*template.Template
	schema    string
}

// NewTextPromptBuilder は埋め込みテンプレートをすべて解析して TextPromptBuilder を初期化します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	parsed := make(map[Mode][2]*template.Template, len(modeFiles))
	for mode, files := range modeFiles {
		var pair [2]*template.Template
		for i, name := range files {
			content, err := loadTemplate(name)
			if err != nil {
				return nil, err
			}
			tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
			if err != nil {
				return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", name, err)
			}
			pair[i] = tmpl
		}
		parsed[mode] = pair
	}

	schema, err := VideoSceneSchema()
	if err != nil {
		return nil, err
	}

	return &TextPromptBuilder{templates: parsed, schema: schema}, nil
}

// Build は、要求されたモードに応じて適切なテンプレートを実行します。
func (b *TextPromptBuilder) Build(mode Mode, data TemplateData) (PromptText, error) {
	pair, ok := b.templates[mode]
	if !ok {
		supported := make([]string, 0, len(b.templates))
		for _, m := range slices.Sorted(maps.Keys(b.templates)) {
			supported = append(supported, string(m))
		}
		return PromptText{}, fmt.Errorf("サポートされていないモード: '%s'。サポートされているモードは [%s] です",
			mode, strings.Join(supported, ", "))
	}

	var out [2]string
	for i, tmpl := range pair {
		var sb strings.Builder
		if err := tmpl.Execute(&sb, data); err != nil {
			return PromptText{}, fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
		}
		out[i] = strings.TrimSpace(sb.String())
	}
	return PromptText{System: out[0], User: out[1]}, nil
}

// BuildStoryboard は歌詞から字コンテを作る direct モードのプロンプトを組み立てるのだ。
// 目標シーン数は歌詞の行数から導くのだ。
func (b *TextPromptBuilder) BuildStoryboard(cfg domain.GenerationConfig) (PromptText, error) {
	if strings.TrimSpace(cfg.Lyrics) == "" {
		return PromptText{}, emptyLyricsError()
	}
	lines := CountLines(cfg.Lyrics)
	minScenes, maxScenes := TargetSceneRange(cfg.Lyrics)

	style := cfg.VisualStyle
	if style == "" {
		style = domain.StyleCinematic
	}
	data := TemplateData{
		Lyrics:      strings.TrimSpace(cfg.Lyrics),
		LineCount:   lines,
		ArtistName:  cfg.ArtistName,
		SongTitle:   cfg.SongTitle,
		VisualStyle: style.Label(),
		MinScenes:   minScenes,
		MaxScenes:   maxScenes,
		Example:     storyboardExample,
	}
	if cfg.CameraAngle != "" {
		data.CameraAngle = cfg.CameraAngle.Label()
	}
	if cfg.CameraMovement != "" {
		data.CameraMovement = cfg.CameraMovement.Label()
	}
	if cfg.SpecialTechnique != "" {
		data.SpecialTechnique = cfg.SpecialTechnique.Label()
	}
	return b.Build(ModeStoryboard, data)
}

// BuildVideo は英語の動画プロンプト用の指示を組み立てるのだ。
// 既存の字コンテがあれば derived モードになり、シーン数ちょうどを要求するのだ。
func (b *TextPromptBuilder) BuildVideo(req domain.VideoPromptRequest) (PromptText, Mode, error) {
	data := TemplateData{
		Style:          req.Style,
		NegativePrompt: domain.DefaultNegativePrompt,
		Example:        videoExample,
	}
	if data.Style == "" {
		data.Style = domain.StyleCinematic.Label()
	}

	if n := len(req.ExistingScenes); n > 0 {
		data.SceneCount = n
		data.Schema = b.schema
		data.Scenes = make([]SceneLine, n)
		for i, s := range req.ExistingScenes {
			data.Scenes[i] = SceneLine{Index: i + 1, Duration: s.Duration, CutDescription: s.CutDescription}
		}
		p, err := b.Build(ModeVideoDerived, data)
		return p, ModeVideoDerived, err
	}

	if strings.TrimSpace(req.Lyrics) == "" {
		return PromptText{}, ModeVideoDirect, emptyLyricsError()
	}
	data.Lyrics = strings.TrimSpace(req.Lyrics)
	data.LineCount = CountLines(req.Lyrics)
	data.MinScenes, data.MaxScenes = TargetSceneRange(req.Lyrics)
	p, err := b.Build(ModeVideoDirect, data)
	return p, ModeVideoDirect, err
}

// BuildScenePrompt は字コンテ1シーンから絵コンテ画像用プロンプトを作る指示を組み立てるのだ。
func (b *TextPromptBuilder) BuildScenePrompt(scene domain.Scene) (PromptText, error) {
	return b.Build(ModeScenePrompt, TemplateData{Scene: SceneSummary{
		SceneNumber:    scene.SceneNumber,
		Duration:       scene.Duration,
		CutDescription: scene.CutDescription,
		AudioSE:        scene.AudioSE,
		Telop:          scene.Telop,
		Narration:      scene.Narration,
		DirectionMemo:  scene.DirectionMemo,
	}})
}

// CountLines は空行を除いた歌詞の行数を数えるのだ。
func CountLines(lyrics string) int {
	n := 0
	for line := range strings.Lines(lyrics) {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// TargetSceneRange は「2〜4行で1シーン」の目安から目標シーン数の範囲を返すのだ。
// 16行なら [4, 8] なのだ。
func TargetSceneRange(lyrics string) (minScenes, maxScenes int) {
	n := CountLines(lyrics)
	minScenes = max(1, (n+3)/4)
	maxScenes = max(minScenes, (n+1)/2)
	return minScenes, maxScenes
}

func emptyLyricsError() error {
	return &domain.ConfigError{Code: domain.CodeEmptyInput, Field: "lyrics", Msg: "歌詞が空です"}
}
