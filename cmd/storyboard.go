package cmd

import (
	"log/slog"
	"os"

	"github.com/shouni/go-lyric-storyboard/internal/pipeline"

	"github.com/spf13/cobra"
)

// storyboardCmd は、歌詞から日本語の字コンテを生成するサブコマンドなのだ。
var storyboardCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "歌詞から字コンテを生成して TSV / JSON で保存するのだ。",
	Long: `歌詞ファイルを読み込み、Gemini で日本語の字コンテ（秒数、カット割り、音声、テロップ、ナレーション、演出メモ）を生成するのだ。
スプレッドシートに貼り付けられる TSV が既定の出力なのだ。`,
	RunE: storyboardCommand,
}

func storyboardCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	slog.Info("字コンテ生成モードを起動するのだ！",
		"lyrics_file", cfg.Options.LyricsFile,
		"style", cfg.Options.Style,
		"model", cfg.GeminiModel)
	return pipeline.ExecuteStoryboard(ctx, cfg, os.Stdin)
}
