package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shouni/go-utils/envutil"
	"gopkg.in/yaml.v2"
)

// デフォルト値の定義なのだ
const (
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultOpenRouterModel   = "tngtech/deepseek-r1t-chimera:free"
	DefaultScenePromptModel  = "tngtech/deepseek-r1t-chimera:free"
	DefaultImageProvider     = "pollinations"
	DefaultImageModel        = "gemini-2.5-flash-image"
	DefaultMaxTokens         = 50000
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 5 * time.Second
	DefaultThreshold         = 0.8
	DefaultBatchDelay        = 1 * time.Second
	DefaultHTTPTimeout       = 5 * time.Minute
	DefaultListenAddr        = ":8080"
	DefaultOutputDir         = "output"
	DefaultLocalFile         = "output/storyboard.tsv" // storyboard コマンドのデフォルト保存先なのだ
	DefaultVideoFile         = "output/video_prompts_for_comfyui.json"
	DefaultStyle             = "CINEMATIC"
	DefaultImagePromptSuffix = "cinematic storyboard sketch, detailed composition, high quality"
)

// MinioConfig は S3 互換ストレージの接続設定なのだ。
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Config はアプリケーション全体の環境設定（APIキーや接続先）を保持する構造体なのだ。
// API キーは YAML には書かせず、環境変数からだけ読むのだ。
type Config struct {
	GeminiAPIKey     string `yaml:"-"`
	OpenRouterAPIKey string `yaml:"-"`
	ImageAPIKey      string `yaml:"-"`

	GeminiModel       string `yaml:"gemini_model"`
	OpenRouterModel   string `yaml:"openrouter_model"`
	ScenePromptModel  string `yaml:"scene_prompt_model"`
	ImageProvider     string `yaml:"image_provider"`
	ImageModel        string `yaml:"image_model"`
	ImagePromptSuffix string `yaml:"image_prompt_suffix"`
	MaxTokens         int64  `yaml:"max_tokens"`

	ListenAddr string      `yaml:"listen_addr"`
	MySQLDSN   string      `yaml:"mysql_dsn"`
	Minio      MinioConfig `yaml:"minio"`

	Options GenerateOptions `yaml:"-"`
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() *Config {
	return &Config{
		GeminiModel:       DefaultGeminiModel,
		OpenRouterModel:   DefaultOpenRouterModel,
		ScenePromptModel:  DefaultScenePromptModel,
		ImageProvider:     DefaultImageProvider,
		ImageModel:        DefaultImageModel,
		ImagePromptSuffix: DefaultImagePromptSuffix,
		MaxTokens:         DefaultMaxTokens,
		ListenAddr:        DefaultListenAddr,
		Options:           DefaultOptions(),
	}
}

// DefaultOptions はフラグと同じ既定値を持つ GenerateOptions を返すのだ。
func DefaultOptions() GenerateOptions {
	return GenerateOptions{
		OutputDir:   DefaultOutputDir,
		Format:      "tsv",
		Style:       DefaultStyle,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		Threshold:   DefaultThreshold,
		BatchDelay:  DefaultBatchDelay,
		HTTPTimeout: DefaultHTTPTimeout,
	}
}

// LoadConfig は既定値に YAML ファイル（任意）を重ね、最後に環境変数で上書きした設定を返すのだ！
func LoadConfig(yamlPath string) (*Config, error) {
	cfg := DefaultConfig()
	if yamlPath != "" {
		if err := cfg.applyYAML(yamlPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyYAML(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗しました (%s): %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗しました (%s): %w", path, err)
	}
	return nil
}

// applyEnv は設定済みの値をフォールバックにして環境変数を読むのだ。
func (c *Config) applyEnv() error {
	c.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.OpenRouterAPIKey = envutil.GetEnv("OPENROUTER_API_KEY", c.OpenRouterAPIKey)
	c.ImageAPIKey = envutil.GetEnv("IMAGE_API_KEY", c.ImageAPIKey)

	c.GeminiModel = envutil.GetEnv("GEMINI_MODEL", c.GeminiModel)
	c.OpenRouterModel = envutil.GetEnv("OPENROUTER_MODEL", c.OpenRouterModel)
	c.ScenePromptModel = envutil.GetEnv("SCENE_PROMPT_MODEL", c.ScenePromptModel)
	c.ImageProvider = envutil.GetEnv("IMAGE_PROVIDER", c.ImageProvider)
	c.ImageModel = envutil.GetEnv("IMAGE_MODEL", c.ImageModel)
	c.ImagePromptSuffix = envutil.GetEnv("IMAGE_PROMPT_SUFFIX", c.ImagePromptSuffix)

	c.ListenAddr = envutil.GetEnv("LISTEN_ADDR", c.ListenAddr)
	c.MySQLDSN = envutil.GetEnv("MYSQL_DSN", c.MySQLDSN)
	c.Minio.Endpoint = envutil.GetEnv("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = envutil.GetEnv("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = envutil.GetEnv("MINIO_SECRET_KEY", c.Minio.SecretKey)

	useSSL := envutil.GetEnv("MINIO_USE_SSL", strconv.FormatBool(c.Minio.UseSSL))
	b, err := strconv.ParseBool(useSSL)
	if err != nil {
		return fmt.Errorf("MINIO_USE_SSL の値が不正です (%q): %w", useSSL, err)
	}
	c.Minio.UseSSL = b

	maxTokens := envutil.GetEnv("OPENROUTER_MAX_TOKENS", strconv.FormatInt(c.MaxTokens, 10))
	n, err := strconv.ParseInt(maxTokens, 10, 64)
	if err != nil {
		return fmt.Errorf("OPENROUTER_MAX_TOKENS の値が不正です (%q): %w", maxTokens, err)
	}
	c.MaxTokens = n
	return nil
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// 入出力
	LyricsFile     string // --lyrics-file ('-' で標準入力)
	StoryboardFile string // --storyboard-file
	OutputFile     string // --output-file
	OutputDir      string // --output-dir
	Format         string // --format (tsv/json)

	// 楽曲と演出
	ArtistName       string // --artist
	SongTitle        string // --title
	Style            string // --style
	CameraAngle      string // --camera-angle
	CameraMovement   string // --camera-movement
	SpecialTechnique string // --technique

	// AI挙動設定
	Model         string // --model
	ImageProvider string // --image-provider

	// 実行制御
	MaxRetries  int           // --max-retries
	RetryDelay  time.Duration // --retry-delay
	Threshold   float64       // --threshold
	BatchDelay  time.Duration // --batch-delay
	HTTPTimeout time.Duration // --http-timeout
	ConfigFile  string        // --config
	Verbose     bool          // --verbose
}
