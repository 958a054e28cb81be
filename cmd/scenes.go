package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/internal/pipeline"

	"github.com/spf13/cobra"
)

// scenesCmd は、字コンテの各シーンから画像プロンプトを作るサブコマンドなのだ。
var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "字コンテ JSON からシーンごとの画像プロンプトを生成するのだ。",
	Long: `字コンテ JSON の各シーンを1件ずつ処理して、絵コンテ用の英語プロンプトを作るのだ。
ComfyUI 用 JSON、スプレッドシート用 TSV、絵コンテ Markdown を --output-dir に書き出すのだ。`,
	RunE: scenesCommand,
}

func scenesCommand(cmd *cobra.Command, args []string) error {
	if opts.StoryboardFile == "" {
		return fmt.Errorf("読み込む字コンテ JSON（--storyboard-file）を指定してほしいのだ")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	slog.Info("画像プロンプト生成モードを起動するのだ！",
		"storyboard_file", cfg.Options.StoryboardFile,
		"output_dir", cfg.Options.OutputDir,
		"model", cfg.ScenePromptModel)
	return pipeline.ExecuteScenePrompts(ctx, cfg)
}
