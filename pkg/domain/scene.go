package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultNegativePrompt は negative_prompt が欠けているときに補う標準値なのだ。
	DefaultNegativePrompt = "blurry, low quality, distorted, deformed, ugly, static, messy, amateur"
	// DefaultVideoSceneSeconds は duration_seconds が欠けているときの補完値なのだ。
	DefaultVideoSceneSeconds = 4
	// DefaultTimelineSeconds は秒数が読み取れないシーンをタイムラインに並べるときの長さなのだ。
	DefaultTimelineSeconds = 5
)

// Scene は歌詞から直接生成された字コンテの1シーンなのだ（検証済み）。
type Scene struct {
	SceneNumber    int    `json:"sceneNumber"`
	Duration       string `json:"duration"`
	CutDescription string `json:"cutDescription"`
	AudioSE        string `json:"audioSE"`
	Telop          string `json:"telop"`
	Narration      string `json:"narration"`
	DirectionMemo  string `json:"directionMemo"`

	// Timestamp はタイムスタンプ計算の段階で導出される値で、モデル出力からは受け取らないのだ。
	Timestamp string `json:"timestamp,omitempty"`
}

var durationDigits = regexp.MustCompile(`(\d+)`)

// DurationSeconds は "3秒" のような自由記述から最初の数字列を取り出すのだ。
// 数字が無ければ DefaultTimelineSeconds を返すのだ。
func (s Scene) DurationSeconds() int {
	m := durationDigits.FindString(s.Duration)
	if m == "" {
		return DefaultTimelineSeconds
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return DefaultTimelineSeconds
	}
	return n
}

// VideoScene は動画生成モデル向けの英語プロンプト1件なのだ（検証済み）。
type VideoScene struct {
	Scene           int    `json:"scene" jsonschema:"minimum=1" jsonschema_description:"1-based scene index, consecutive"`
	Timestamp       string `json:"timestamp" jsonschema_description:"Cumulative range M:SS-M:SS (recomputed by the client)"`
	DurationSeconds int    `json:"duration_seconds" jsonschema:"minimum=1" jsonschema_description:"Length of the cut in whole seconds"`
	Prompt          string `json:"prompt" jsonschema_description:"150-300 word technical English prompt: camera, subject, background, lighting, color grading, mood"`
	NegativePrompt  string `json:"negative_prompt" jsonschema_description:"Comma separated things to avoid"`
}

// SceneDraft はモデルが返した配列要素そのままの、信用できない中間表現なのだ。
// ToScene / ToVideoScene を通すまでは一切信用しないのだ。
type SceneDraft map[string]any

// ToScene は字コンテ用の検証付き変換なのだ。index は配列内の 0 始まりの位置なのだ。
// duration が欠けていればタイムラインと同じ既定秒数で埋めるのだ。
func (d SceneDraft) ToScene(index int) (Scene, error) {
	num, ok := d.positiveInt("sceneNumber")
	if !ok {
		return Scene{}, &MissingFieldError{Index: index, Field: "sceneNumber"}
	}
	cut := d.text("cutDescription")
	if strings.TrimSpace(cut) == "" {
		return Scene{}, &MissingFieldError{Index: index, Field: "cutDescription"}
	}

	duration := d.text("duration")
	if n, ok := d.positiveInt("duration"); ok {
		if _, isString := d["duration"].(string); !isString {
			duration = strconv.Itoa(n) + "秒"
		}
	}
	if strings.TrimSpace(duration) == "" {
		duration = strconv.Itoa(DefaultTimelineSeconds) + "秒"
	}

	return Scene{
		SceneNumber:    num,
		Duration:       duration,
		CutDescription: cut,
		AudioSE:        d.text("audioSE"),
		Telop:          d.text("telop"),
		Narration:      d.text("narration"),
		DirectionMemo:  d.text("directionMemo"),
	}, nil
}

// ToVideoScene は動画プロンプト用の検証付き変換なのだ。
// duration_seconds と negative_prompt は欠けていれば既定値で埋め、timestamp は捨てるのだ。
func (d SceneDraft) ToVideoScene(index int) (VideoScene, error) {
	num, ok := d.positiveInt("scene")
	if !ok {
		return VideoScene{}, &MissingFieldError{Index: index, Field: "scene"}
	}
	prompt := d.text("prompt")
	if strings.TrimSpace(prompt) == "" {
		return VideoScene{}, &MissingFieldError{Index: index, Field: "prompt"}
	}

	seconds, ok := d.positiveInt("duration_seconds")
	if !ok {
		seconds = DefaultVideoSceneSeconds
	}
	negative := d.text("negative_prompt")
	if strings.TrimSpace(negative) == "" {
		negative = DefaultNegativePrompt
	}

	return VideoScene{
		Scene:           num,
		DurationSeconds: seconds,
		Prompt:          prompt,
		NegativePrompt:  negative,
	}, nil
}

// text は文字列フィールドを取り出すのだ。数値は文字列化し、それ以外は空文字なのだ。
func (d SceneDraft) text(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// positiveInt は JSON 数値（float64）または数値文字列を正の整数として読むのだ。
func (d SceneDraft) positiveInt(key string) (int, bool) {
	var f float64
	switch v := d[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
