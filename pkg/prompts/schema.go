package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// VideoSceneSchema は出力スキーマ（VideoScene の配列）を JSON Schema 文字列として返すのだ。
// プロンプトに埋め込み、整形式の JSON を出すようモデルを誘導するのだ。
func VideoSceneSchema() (string, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect([]domain.VideoScene{})
	// モデルには不要なメタ情報なので落とすのだ
	schema.Version = ""

	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON Schema の生成に失敗しました: %w", err)
	}
	return string(b), nil
}

const storyboardExample = `[
  {
    "sceneNumber": 1,
    "duration": "3秒",
    "cutDescription": "【被写体】孤独な少女が窓辺で雨を眺めている、憂鬱な表情。【カメラ】ミディアムショット、アイレベル、ゆっくりとドリーイン。【背景】薄暗い部屋、壁に掛けられた古い時計が3時を指している。",
    "audioSE": "「雨の日の午後」のフレーズ、静かな雨音のSE",
    "telop": "",
    "narration": "",
    "directionMemo": "【自然】窓の外は曇り空、柔らかい自然光が室内を照らす。【時間】午後3時、雨の日。【グレーディング】青みがかった寒色系、コントラスト低め。"
  }
]`

const videoExample = `[
  {
    "scene": 1,
    "timestamp": "0:00-0:04",
    "duration_seconds": 4,
    "prompt": "Cinematic medium shot at eye level, young man (late 20s, casual outfit) standing on urban street at golden hour. Background shows blurred city buildings with warm sunset glow. Soft natural lighting from left creates gentle shadows. Color palette: warm oranges and deep blues, high contrast. Mood: contemplative and hopeful. Camera static, shallow depth of field (f/2.8), 832x480, 24fps, cinematic bokeh.",
    "negative_prompt": "` + domain.DefaultNegativePrompt + `"
  }
]`
