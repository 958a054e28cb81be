package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-lyric-storyboard/internal/builder"
	"github.com/shouni/go-lyric-storyboard/internal/config"
	"github.com/shouni/go-lyric-storyboard/internal/runner"
	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/imagegen"
	"github.com/shouni/go-lyric-storyboard/pkg/parser"
	"github.com/shouni/go-lyric-storyboard/pkg/publisher"
	"github.com/shouni/go-lyric-storyboard/pkg/store"
)

// 出力形式
const (
	FormatTSV  = "tsv"
	FormatJSON = "json"
)

// ExecuteStoryboard は歌詞から字コンテを生成し、TSV か JSON で保存するのだ。
func ExecuteStoryboard(ctx context.Context, cfg *config.Config, stdin io.Reader) error {
	appCtx, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}

	lyrics, err := runner.ReadInput(cfg.Options.LyricsFile, stdin)
	if err != nil {
		return err
	}
	res, err := builder.BuildStoryboardRunner(appCtx).Run(ctx, lyrics)
	if err != nil {
		return err
	}

	kind := publisher.KindTSV
	if strings.EqualFold(cfg.Options.Format, FormatJSON) {
		kind = publisher.KindStoryboard
	}
	outPath := outputFileOr(cfg.Options.OutputFile, config.DefaultLocalFile)
	if err := publishFile(ctx, appCtx, outPath, kind, res.Scenes); err != nil {
		return err
	}

	saveProject(ctx, appCtx, lyrics, res.Scenes, nil)
	slog.Info("字コンテの生成が完了したのだ！", "path", outPath, "scenes", len(res.Scenes))
	return nil
}

// ExecuteVideo は動画プロンプトを生成して ComfyUI 向け JSON で保存するのだ。
// --storyboard-file があれば、そのシーン数に合わせる derived モードになるのだ。
func ExecuteVideo(ctx context.Context, cfg *config.Config, stdin io.Reader) error {
	appCtx, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}

	lyrics, err := runner.ReadInput(cfg.Options.LyricsFile, stdin)
	if err != nil {
		return err
	}
	var existing []domain.Scene
	if cfg.Options.StoryboardFile != "" {
		existing, err = readStoryboard(cfg.Options.StoryboardFile)
		if err != nil {
			return err
		}
	}

	res, err := builder.BuildVideoRunner(appCtx).Run(ctx, lyrics, existing)
	if err != nil {
		return err
	}

	outPath := outputFileOr(cfg.Options.OutputFile, config.DefaultVideoFile)
	if err := publishFile(ctx, appCtx, outPath, publisher.KindVideo, res.Scenes); err != nil {
		return err
	}
	slog.Info("動画プロンプトの生成が完了したのだ！", "path", outPath, "scenes", len(res.Scenes), "ratio", res.CompletionRatio)
	return nil
}

// ExecuteScenePrompts は字コンテ JSON の各シーンから画像プロンプトを作り、資料一式を書き出すのだ。
func ExecuteScenePrompts(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}
	scenes, err := readStoryboard(cfg.Options.StoryboardFile)
	if err != nil {
		return err
	}

	prompts, err := runScenePromptStep(ctx, appCtx, scenes)
	if err != nil {
		return err
	}
	return runPublishStep(ctx, appCtx, publisher.Bundle{Scenes: scenes, ScenePrompts: prompts})
}

// ExecuteImages は字コンテ JSON から絵コンテ画像を生成して保存するのだ。
// OpenRouter のキーがあれば先に画像プロンプトを作り、無ければカット説明をそのまま使うのだ。
func ExecuteImages(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}
	scenes, err := readStoryboard(cfg.Options.StoryboardFile)
	if err != nil {
		return err
	}

	var prompts map[int]string
	if cfg.OpenRouterAPIKey != "" {
		prompts, err = runScenePromptStep(ctx, appCtx, scenes)
		if err != nil {
			return err
		}
	}

	images, err := runImageStep(ctx, appCtx, scenes, prompts)
	if err != nil {
		return err
	}
	return runPublishStep(ctx, appCtx, publisher.Bundle{Scenes: scenes, ScenePrompts: prompts, Images: images})
}

// ExecuteAll は歌詞から字コンテ、動画プロンプト、画像プロンプト、絵コンテ画像までを一気に作るのだ。
func ExecuteAll(ctx context.Context, cfg *config.Config, stdin io.Reader) error {
	appCtx, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}
	lyrics, err := runner.ReadInput(cfg.Options.LyricsFile, stdin)
	if err != nil {
		return err
	}

	// --- Phase 1: 字コンテ ---
	slog.Info("Phase 1: 字コンテの生成を開始するのだ...")
	board, err := builder.BuildStoryboardRunner(appCtx).Run(ctx, lyrics)
	if err != nil {
		return err
	}

	// --- Phase 2: 動画プロンプト (derived) ---
	slog.Info("Phase 2: 動画プロンプトの生成を開始するのだ...")
	// --model は字コンテ側のモデルなので、動画プロンプトは設定のモデルを使うのだ
	videoRunner := runner.NewVideoPromptRunner(appCtx.Service, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.Options.Style)
	video, err := videoRunner.Run(ctx, lyrics, board.Scenes)
	if err != nil {
		return err
	}

	// --- Phase 3: 画像プロンプトと画像 ---
	prompts, err := runScenePromptStep(ctx, appCtx, board.Scenes)
	if err != nil {
		return err
	}
	images, err := runImageStep(ctx, appCtx, board.Scenes, prompts)
	if err != nil {
		return err
	}

	// --- Phase 4: 公開/保存 ---
	if err := runPublishStep(ctx, appCtx, publisher.Bundle{
		Scenes:       board.Scenes,
		VideoScenes:  video.Scenes,
		ScenePrompts: prompts,
		Images:       images,
	}); err != nil {
		return err
	}
	saveProject(ctx, appCtx, lyrics, board.Scenes, video.Scenes)
	slog.Info("すべての工程が完了したのだ！")
	return nil
}

func runScenePromptStep(ctx context.Context, appCtx *builder.AppContext, scenes []domain.Scene) (map[int]string, error) {
	slog.Info("画像プロンプトの生成を開始するのだ...", "scenes", len(scenes))
	return builder.BuildScenePromptRunner(appCtx, logProgress("画像プロンプト")).Run(ctx, scenes)
}

// runImageStep は ImageRunner を使ってシーン画像を生成するのだ
func runImageStep(ctx context.Context, appCtx *builder.AppContext, scenes []domain.Scene, prompts map[int]string) (map[int]*imagegen.Result, error) {
	slog.Info("絵コンテ画像の生成を開始するのだ...", "scenes", len(scenes))
	imageRunner, err := builder.BuildImageRunner(ctx, appCtx, logProgress("画像"))
	if err != nil {
		return nil, fmt.Errorf("ImageRunnerの構築に失敗したのだ: %w", err)
	}
	return imageRunner.Run(ctx, scenes, prompts)
}

// runPublishStep は PublisherRunner を使って最終成果物を保存するのだ
func runPublishStep(ctx context.Context, appCtx *builder.AppContext, bundle publisher.Bundle) error {
	slog.Info("公開処理を開始するのだ...")
	publishRunner, err := builder.BuildPublisherRunner(appCtx)
	if err != nil {
		return fmt.Errorf("PublishRunnerの構築に失敗したのだ: %w", err)
	}
	if _, err := publishRunner.Run(ctx, bundle); err != nil {
		return fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}
	return nil
}

func publishFile(ctx context.Context, appCtx *builder.AppContext, outPath string, kind publisher.Kind, payload any) error {
	pub, err := builder.InitializePublisher(appCtx, outPath)
	if err != nil {
		return err
	}
	return pub.PublishFile(ctx, outPath, kind, payload)
}

// saveProject は成果物をプロジェクトとして残すのだ。失敗しても生成結果は書き出し済みなので警告に留めるのだ。
func saveProject(ctx context.Context, appCtx *builder.AppContext, lyrics string, scenes []domain.Scene, video []domain.VideoScene) {
	p := &store.Project{
		Title:       appCtx.Options.SongTitle,
		Lyrics:      lyrics,
		Scenes:      scenes,
		VideoScenes: video,
	}
	if cfg, err := runner.GenerationConfigFrom(appCtx.Options, ""); err == nil {
		p.Settings = cfg
	}
	if err := appCtx.Store.Save(ctx, p); err != nil {
		slog.WarnContext(ctx, "プロジェクトの保存に失敗したのだ", "error", err)
		return
	}
	slog.DebugContext(ctx, "プロジェクトを保存したのだ", "id", p.ID)
}

func readStoryboard(path string) ([]domain.Scene, error) {
	if path == "" {
		return nil, &domain.ConfigError{Code: domain.CodeEmptyInput, Field: "storyboard", Msg: "字コンテ JSON (--storyboard-file) が指定されていません"}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("字コンテファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	defer f.Close()

	scenes, err := parser.DecodeStoryboard(f)
	if err != nil {
		return nil, fmt.Errorf("字コンテファイル '%s' のデコードに失敗しました: %w", path, err)
	}
	return scenes, nil
}

func outputFileOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}

func logProgress(label string) batch.Observer {
	return batch.ObserverFunc(func(ctx context.Context, p batch.Progress) {
		if p.Err != nil {
			slog.WarnContext(ctx, label+"の生成に失敗したのだ", "index", p.Index, "error", p.Err)
			return
		}
		slog.InfoContext(ctx, label+"を生成中なのだ", "completed", p.Completed, "total", p.Total)
	})
}
