package cmd

import (
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/internal/builder"
	"github.com/shouni/go-lyric-storyboard/internal/server"

	"github.com/spf13/cobra"
)

var listenAddr string

// serveCmd は、生成機能を HTTP API として公開するサブコマンドなのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP API と WebSocket を起動するのだ。",
	Long: `字コンテ、動画プロンプト、TSV 書き出し、プロジェクト保存の API を起動するのだ。
API キーはリクエストごとに X-API-Key ヘッダで受け取り、サーバーの環境変数は使わないのだ。`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "待ち受けアドレスなのだ（未指定なら LISTEN_ADDR）。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	appCtx, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Args{
		Service:          appCtx.Service,
		ScenePrompts:     appCtx.ScenePrompts,
		Store:            appCtx.Store,
		ScenePromptModel: cfg.ScenePromptModel,
		BatchDelay:       cfg.Options.BatchDelay,
		Logger:           slog.Default(),
	})
	if err != nil {
		return err
	}

	addr := listenAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	return srv.Run(ctx, addr)
}
