package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-lyric-storyboard/internal/config"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// opts はフラグの値を受け取る、全サブコマンド共通の実行時オプションなのだ。
var opts config.GenerateOptions

var rootCmd = &cobra.Command{
	Use:           "lyric-storyboard",
	Short:         "歌詞から字コンテと動画プロンプトを作るのだ。",
	Long:          `歌詞を読み込み、AI で日本語の字コンテ、動画生成向けの英語プロンプト、絵コンテ画像までを作る CLI なのだ。`,
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: preRunAppE,
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(storyboardCmd, videoCmd, scenesCmd, imageCmd, generateCmd, serveCmd)
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 入力 ---
	rootCmd.PersistentFlags().StringVarP(&opts.LyricsFile, "lyrics-file", "f", "", "歌詞ファイルのパス（'-'で標準入力なのだ）。")
	rootCmd.PersistentFlags().StringVarP(&opts.StoryboardFile, "storyboard-file", "s", "", "字コンテ JSON のパスなのだ。")

	// --- 出力 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputFile, "output-file", "o", "", "保存パス（ローカル or s3://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.OutputDir, "output-dir", config.DefaultOutputDir, "成果物一式の保存先ディレクトリ（ローカル or s3://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Format, "format", "tsv", "字コンテの出力形式（tsv / json）なのだ。")

	// --- 楽曲と演出 ---
	rootCmd.PersistentFlags().StringVar(&opts.ArtistName, "artist", "", "アーティスト名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.SongTitle, "title", "", "曲名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Style, "style", config.DefaultStyle, "映像スタイルなのだ（CINEMATIC, ANIME_STYLE など）。")
	rootCmd.PersistentFlags().StringVar(&opts.CameraAngle, "camera-angle", "", "カメラアングルなのだ（LOW_ANGLE など）。")
	rootCmd.PersistentFlags().StringVar(&opts.CameraMovement, "camera-movement", "", "カメラワークなのだ（DOLLY_IN など）。")
	rootCmd.PersistentFlags().StringVar(&opts.SpecialTechnique, "technique", "", "特殊撮影技法なのだ（SLOW_MOTION など）。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.Model, "model", "", "使用するモデル名なのだ（未指定ならコマンドごとの既定値）。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageProvider, "image-provider", "", "画像生成プロバイダなのだ（pollinations / gemini / dalle）。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().IntVar(&opts.MaxRetries, "max-retries", config.DefaultMaxRetries, "生成に失敗したときの最大リトライ回数なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RetryDelay, "retry-delay", config.DefaultRetryDelay, "リトライまでの待ち時間なのだ。")
	rootCmd.PersistentFlags().Float64Var(&opts.Threshold, "threshold", config.DefaultThreshold, "部分的な結果を受理するシーン数の割合なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.BatchDelay, "batch-delay", config.DefaultBatchDelay, "シーンごとの呼び出し間隔なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "1コマンド全体のタイムアウトなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML 設定ファイルのパスなのだ。")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "デバッグログを出すのだ。")
}

// preRunAppE は、コマンド実行前に .env の読み込みとログレベルの設定を行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env の読み込みに失敗しました: %w", err)
	}
	if opts.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	return nil
}

// loadConfig は環境変数と設定ファイルを読み、フラグの値を載せた設定を返すのだ。
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.Options = opts
	return cfg, nil
}

// commandContext は --http-timeout を上限にした context を返すのだ。
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if opts.HTTPTimeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), opts.HTTPTimeout)
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("コマンドの実行に失敗したのだ", "code", domain.CodeOf(err))
		fmt.Fprintln(os.Stderr, domain.UserMessage(err, domain.Hint{}))
		stop()
		os.Exit(1)
	}
}
