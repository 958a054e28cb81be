package cmd

import (
	"log/slog"
	"os"

	"github.com/shouni/go-lyric-storyboard/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、歌詞から全成果物までを一気に作るサブコマンドなのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "歌詞から字コンテ、動画プロンプト、絵コンテ画像までを一括生成するのだ。",
	Long: `字コンテ生成（Gemini）、同じシーン数での動画プロンプト生成（OpenRouter）、
シーンごとの画像プロンプトと画像の生成、成果物の書き出しを順番に実行するのだ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	slog.Info("一括生成モードを起動するのだ！",
		"lyrics_file", cfg.Options.LyricsFile,
		"output_dir", cfg.Options.OutputDir)
	return pipeline.ExecuteAll(ctx, cfg, os.Stdin)
}
