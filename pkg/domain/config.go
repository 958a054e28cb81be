package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// GenerationConfig は字コンテ生成（direct モード）の入力なのだ。
// 呼び出し側が所有し、PromptBuilder に渡した後は変更しないのだ。
type GenerationConfig struct {
	Lyrics           string           `json:"lyrics" yaml:"lyrics"`
	ArtistName       string           `json:"artist_name,omitempty" yaml:"artist_name"`
	SongTitle        string           `json:"song_title,omitempty" yaml:"song_title"`
	VisualStyle      VisualStyle      `json:"visual_style" yaml:"visual_style"`
	CameraAngle      CameraAngle      `json:"camera_angle,omitempty" yaml:"camera_angle"`
	CameraMovement   CameraMovement   `json:"camera_movement,omitempty" yaml:"camera_movement"`
	SpecialTechnique SpecialTechnique `json:"special_technique,omitempty" yaml:"special_technique"`

	// APIKey は呼び出しごとに渡される認証情報なのだ。環境変数からは読まないのだ。
	APIKey string `json:"-" yaml:"-"`
	// Model が空ならサービス側のデフォルトモデルを使うのだ。
	Model string `json:"model,omitempty" yaml:"model"`
}

// VideoPromptRequest は動画生成用英語プロンプト（derived / direct video モード）の入力なのだ。
type VideoPromptRequest struct {
	Lyrics string `json:"lyrics"`
	Style  string `json:"style"`
	Model  string `json:"model"`
	// ExistingScenes があれば derived モードになり、同じシーン数を要求するのだ。
	ExistingScenes []Scene `json:"existing_scenes,omitempty"`
}

// VisualStyle は映像スタイルの列挙子なのだ。
type VisualStyle string

const (
	StyleCinematic   VisualStyle = "CINEMATIC"
	StyleDocumentary VisualStyle = "DOCUMENTARY"
	StyleMusicVideo  VisualStyle = "MUSIC_VIDEO"
	StyleAnime       VisualStyle = "ANIME_STYLE"
	StylePixar       VisualStyle = "PIXAR_STYLE"
	StyleGhibli      VisualStyle = "GHIBLI_STYLE"
	StyleFilmNoir    VisualStyle = "FILM_NOIR"
	StyleCyberpunk   VisualStyle = "CYBERPUNK"
	StyleSteampunk   VisualStyle = "STEAMPUNK"
	StyleFantasy     VisualStyle = "FANTASY"
)

var visualStyleLabels = map[VisualStyle]string{
	StyleCinematic:   "シネマティック（映画的・リアル）",
	StyleDocumentary: "ドキュメンタリー風",
	StyleMusicVideo:  "ミュージックビデオ風",
	StyleAnime:       "アニメ風（新海誠風）",
	StylePixar:       "ピクサー風3DCG",
	StyleGhibli:      "ジブリ風",
	StyleFilmNoir:    "フィルム・ノワール",
	StyleCyberpunk:   "サイバーパンク",
	StyleSteampunk:   "スチームパンク",
	StyleFantasy:     "ファンタジー",
}

// CameraAngle はカメラアングルの列挙子なのだ。
type CameraAngle string

const (
	AngleHigh           CameraAngle = "HIGH_ANGLE"
	AngleLow            CameraAngle = "LOW_ANGLE"
	AngleEyeLevel       CameraAngle = "EYE_LEVEL"
	AngleDutch          CameraAngle = "DUTCH_ANGLE"
	AngleAerial         CameraAngle = "AERIAL_VIEW"
	AngleBirdsEye       CameraAngle = "BIRDS_EYE"
	AngleWormsEye       CameraAngle = "WORMS_EYE"
	AngleOverShoulder   CameraAngle = "OVER_SHOULDER"
	AnglePOV            CameraAngle = "POV_SHOT"
	AngleExtremeCloseup CameraAngle = "EXTREME_CLOSEUP"
)

var cameraAngleLabels = map[CameraAngle]string{
	AngleHigh:           "ハイアングル（見下ろし）",
	AngleLow:            "ローアングル（見上げ）",
	AngleEyeLevel:       "アイレベル（目線の高さ）",
	AngleDutch:          "ダッチアングル（斜め）",
	AngleAerial:         "空撮",
	AngleBirdsEye:       "俯瞰（真上から）",
	AngleWormsEye:       "あおり（真下から）",
	AngleOverShoulder:   "肩越しショット",
	AnglePOV:            "主観ショット（POV）",
	AngleExtremeCloseup: "超クローズアップ",
}

// CameraMovement はカメラの動きの列挙子なのだ。
type CameraMovement string

const (
	MovementNone      CameraMovement = "NONE"
	MovementPan       CameraMovement = "PAN_SHOT"
	MovementTilt      CameraMovement = "TILT_SHOT"
	MovementDolly     CameraMovement = "DOLLY_SHOT"
	MovementTracking  CameraMovement = "TRACKING_SHOT"
	MovementZoom      CameraMovement = "ZOOM_INOUT"
	MovementCrane     CameraMovement = "CRANE_SHOT"
	MovementSteadicam CameraMovement = "STEADICAM"
	MovementGimbal    CameraMovement = "GIMBAL_SHOT"
	MovementHandheld  CameraMovement = "HANDHELD"
	MovementDrone     CameraMovement = "DRONE_SHOT"
)

var cameraMovementLabels = map[CameraMovement]string{
	MovementNone:      "なし（固定）",
	MovementPan:       "パン（横移動）",
	MovementTilt:      "ティルト（上下移動）",
	MovementDolly:     "ドリー（前後移動）",
	MovementTracking:  "トラッキング（追従）",
	MovementZoom:      "ズームイン・アウト",
	MovementCrane:     "クレーンショット",
	MovementSteadicam: "ステディカム",
	MovementGimbal:    "ジンバルショット",
	MovementHandheld:  "手持ちカメラ",
	MovementDrone:     "ドローンショット",
}

// SpecialTechnique は特殊撮影テクニックの列挙子なのだ。
type SpecialTechnique string

const (
	TechniqueNone        SpecialTechnique = "NONE"
	TechniqueTimelapse   SpecialTechnique = "TIMELAPSE"
	TechniqueSlowMotion  SpecialTechnique = "SLOW_MOTION"
	TechniqueWhipPan     SpecialTechnique = "WHIP_PAN"
	TechniqueRackFocus   SpecialTechnique = "RACK_FOCUS"
	TechniqueSplitScreen SpecialTechnique = "SPLIT_SCREEN"
	TechniquePanorama360 SpecialTechnique = "PANORAMA_360"
	TechniqueOrbital     SpecialTechnique = "ORBITAL_SHOT"
	TechniqueVertigo     SpecialTechnique = "VERTIGO_EFFECT"
	TechniqueFisheye     SpecialTechnique = "FISHEYE_LENS"
	TechniqueTelephoto   SpecialTechnique = "TELEPHOTO"
)

var specialTechniqueLabels = map[SpecialTechnique]string{
	TechniqueNone:        "なし",
	TechniqueTimelapse:   "タイムラプス",
	TechniqueSlowMotion:  "スローモーション",
	TechniqueWhipPan:     "ウィップパン",
	TechniqueRackFocus:   "ラックフォーカス（ピント送り）",
	TechniqueSplitScreen: "スプリットスクリーン",
	TechniquePanorama360: "360度パノラマ",
	TechniqueOrbital:     "オービタルショット（周回）",
	TechniqueVertigo:     "めまいショット（ドリーズーム）",
	TechniqueFisheye:     "魚眼レンズ",
	TechniqueTelephoto:   "望遠レンズ圧縮",
}

// Label は UI に表示する日本語ラベルを返すのだ。未知の値はそのまま返すのだ。
func (v VisualStyle) Label() string      { return labelOf(visualStyleLabels, v) }
func (v CameraAngle) Label() string      { return labelOf(cameraAngleLabels, v) }
func (v CameraMovement) Label() string   { return labelOf(cameraMovementLabels, v) }
func (v SpecialTechnique) Label() string { return labelOf(specialTechniqueLabels, v) }

// ParseVisualStyle は列挙子のキーを大文字小文字を区別せずに解釈するのだ。
func ParseVisualStyle(s string) (VisualStyle, error) {
	return parseEnum(visualStyleLabels, s, "visual_style")
}

// ParseCameraAngle は空文字を「指定なし」として受け付けるのだ。
func ParseCameraAngle(s string) (CameraAngle, error) {
	return parseEnum(cameraAngleLabels, s, "camera_angle")
}

func ParseCameraMovement(s string) (CameraMovement, error) {
	return parseEnum(cameraMovementLabels, s, "camera_movement")
}

func ParseSpecialTechnique(s string) (SpecialTechnique, error) {
	return parseEnum(specialTechniqueLabels, s, "special_technique")
}

// VisualStyles は定義済みスタイルをキー順で返すのだ。
func VisualStyles() []VisualStyle {
	return slices.Sorted(maps.Keys(visualStyleLabels))
}

func labelOf[K ~string](labels map[K]string, k K) string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

func parseEnum[K ~string](labels map[K]string, s, field string) (K, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	k := K(strings.ToUpper(s))
	if _, ok := labels[k]; ok {
		return k, nil
	}

	supported := make([]string, 0, len(labels))
	for key := range labels {
		supported = append(supported, string(key))
	}
	slices.Sort(supported)
	return "", &ConfigError{
		Code:  CodeBadRequest,
		Field: field,
		Msg:   fmt.Sprintf("サポートされていない値: '%s'。サポートされている値は [%s] です", s, strings.Join(supported, ", ")),
	}
}
