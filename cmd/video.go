package cmd

import (
	"log/slog"
	"os"

	"github.com/shouni/go-lyric-storyboard/internal/pipeline"

	"github.com/spf13/cobra"
)

// videoCmd は、動画生成モデル向けの英語プロンプトを作るサブコマンドなのだ。
var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "歌詞（と字コンテ）から動画プロンプト JSON を生成するのだ。",
	Long: `OpenRouter のモデルで、ComfyUI などに渡せる英語の動画プロンプトを生成するのだ。
--storyboard-file で字コンテ JSON を渡すと、そのシーン数とカット割りに合わせて作るのだ。`,
	RunE: videoCommand,
}

func videoCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	slog.Info("動画プロンプト生成モードを起動するのだ！",
		"lyrics_file", cfg.Options.LyricsFile,
		"storyboard_file", cfg.Options.StoryboardFile,
		"model", cfg.OpenRouterModel)
	return pipeline.ExecuteVideo(ctx, cfg, os.Stdin)
}
