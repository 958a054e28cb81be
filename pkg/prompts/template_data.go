package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

// Mode はプロンプトの生成モードなのだ。
type Mode string

const (
	// ModeStoryboard は歌詞から日本語の字コンテを作る direct モードなのだ。
	ModeStoryboard Mode = "storyboard"
	// ModeVideoDirect は歌詞から英語の動画プロンプトを直接作るモードなのだ。
	ModeVideoDirect Mode = "video_direct"
	// ModeVideoDerived は既存の字コンテを同じシーン数の英語プロンプトに翻訳する derived モードなのだ。
	ModeVideoDerived Mode = "video_derived"
	// ModeScenePrompt は字コンテ1シーンから絵コンテ画像用プロンプトを作るモードなのだ。
	ModeScenePrompt Mode = "scene_prompt"
)

// modeFiles はモードと (system, user) テンプレートファイルを紐づけるマップなのだ。
var modeFiles = map[Mode][2]string{
	ModeStoryboard:   {"storyboard_system.md", "storyboard_user.md"},
	ModeVideoDirect:  {"video_system.md", "video_direct_user.md"},
	ModeVideoDerived: {"video_system.md", "video_derived_user.md"},
	ModeScenePrompt:  {"scene_system.md", "scene_user.md"},
}

//go:embed templates/*.md
var templateFS embed.FS

// SceneLine は derived モードで列挙する入力シーン1行分なのだ。
type SceneLine struct {
	Index          int
	Duration       string
	CutDescription string
}

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
type TemplateData struct {
	Lyrics     string
	LineCount  int
	ArtistName string
	SongTitle  string

	// 表示用ラベル（未指定は空文字）
	VisualStyle      string
	CameraAngle      string
	CameraMovement   string
	SpecialTechnique string

	// 動画プロンプト用
	Style          string
	MinScenes      int
	MaxScenes      int
	SceneCount     int
	Scenes         []SceneLine
	Schema         string
	NegativePrompt string

	Example string

	// 絵コンテ画像プロンプト用
	Scene SceneSummary
}

// SceneSummary は1シーン分のテンプレート入力なのだ。
type SceneSummary struct {
	SceneNumber    int
	Duration       string
	CutDescription string
	AudioSE        string
	Telop          string
	Narration      string
	DirectionMemo  string
}

// PromptText はモデルに送るシステム指示とユーザー指示の組なのだ。
type PromptText struct {
	System string
	User   string
}

// Combined はシステム指示を持てないクライアント向けに1つの文字列へまとめるのだ。
func (p PromptText) Combined() string {
	if p.System == "" {
		return p.User
	}
	return strings.TrimSpace(p.System) + "\n\n" + strings.TrimSpace(p.User)
}

func loadTemplate(name string) (string, error) {
	b, err := fs.ReadFile(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: %w", name, err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: 内容が空です", name)
	}
	return string(b), nil
}
