package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/internal/pipeline"

	"github.com/spf13/cobra"
)

// imageCmd は、既存の字コンテ JSON を読み込んで絵コンテ画像を生成するためのサブコマンドなのだ。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "字コンテ JSON から絵コンテ画像を生成して保存するのだ。",
	Long: `すでに生成・修正済みの字コンテ JSON を読み込み、シーンごとの画像生成と保存を実行するのだ。
プロバイダは --image-provider で選べて、pollinations ならキー無しで URL を作れるのだ。`,
	RunE: imageCommand,
}

// imageCommand は、image サブコマンドの実行ロジック本体なのだ。
func imageCommand(cmd *cobra.Command, args []string) error {
	if opts.StoryboardFile == "" {
		return fmt.Errorf("読み込む字コンテ JSON（--storyboard-file）を指定してほしいのだ")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	provider := cfg.Options.ImageProvider
	if provider == "" {
		provider = cfg.ImageProvider
	}
	slog.Info("画像生成モードを起動するのだ！",
		"storyboard_file", cfg.Options.StoryboardFile,
		"output_dir", cfg.Options.OutputDir,
		"provider", provider)
	return pipeline.ExecuteImages(ctx, cfg)
}
