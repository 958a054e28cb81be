package publisher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/imagegen"
)

// Kind は出力する成果物の種類なのだ。
type Kind string

const (
	KindTSV        Kind = "tsv"
	KindStoryboard Kind = "storyboard_json"
	KindVideo      Kind = "video_json"
	KindMarkdown   Kind = "markdown"
)

// 既定のファイル名なのだ
const (
	DefaultTSVName        = "storyboard.tsv"
	DefaultStoryboardName = "storyboard.json"
	DefaultVideoName      = "video_prompts_for_comfyui.json"
	DefaultComfyUIName    = "storyboard_prompts_for_comfyui.json"
	DefaultSheetName      = "storyboard_with_images.tsv"
	DefaultMarkdownName   = "storyboard.md"
	DefaultImageDirName   = "images"
	DefaultImageFileName  = "scene.png"
)

var contentTypes = map[Kind]string{
	KindTSV:        "text/tab-separated-values; charset=utf-8",
	KindStoryboard: "application/json",
	KindVideo:      "application/json",
	KindMarkdown:   "text/markdown; charset=utf-8",
}

// Bundle はまとめて書き出す成果物なのだ。空の項目は書かないのだ。
type Bundle struct {
	Title        string
	Scenes       []domain.Scene
	VideoScenes  []domain.VideoScene
	ScenePrompts map[int]string           // シーン番号 → 画像プロンプト
	Images       map[int]*imagegen.Result // シーン番号 → 画像
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	Paths      map[Kind]string
	ComfyUI    string
	Sheet      string
	ImagePaths map[int]string
}

// Publisher は成果物の永続化とフォーマット変換を担います。
type Publisher struct {
	writer OutputWriter
}

// New は Publisher を初期化します。
func New(writer OutputWriter) (*Publisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}
	return &Publisher{writer: writer}, nil
}

// PublishFile は1つの成果物を指定の形式で書き出すのだ。
func (p *Publisher) PublishFile(ctx context.Context, outPath string, kind Kind, payload any) error {
	var buf bytes.Buffer
	var err error
	switch kind {
	case KindTSV:
		scenes, ok := payload.([]domain.Scene)
		if !ok {
			return fmt.Errorf("TSV には []domain.Scene が必要です: %T", payload)
		}
		err = WriteTSV(&buf, scenes)
	case KindStoryboard:
		scenes, ok := payload.([]domain.Scene)
		if !ok {
			return fmt.Errorf("字コンテ JSON には []domain.Scene が必要です: %T", payload)
		}
		err = WriteStoryboardJSON(&buf, scenes)
	case KindVideo:
		scenes, ok := payload.([]domain.VideoScene)
		if !ok {
			return fmt.Errorf("動画プロンプト JSON には []domain.VideoScene が必要です: %T", payload)
		}
		err = WriteVideoJSON(&buf, scenes)
	case KindMarkdown:
		s, ok := payload.(string)
		if !ok {
			return fmt.Errorf("Markdown には string が必要です: %T", payload)
		}
		buf.WriteString(s)
	default:
		return fmt.Errorf("サポートされていない出力形式: '%s'", kind)
	}
	if err != nil {
		return err
	}

	if err := p.writer.Write(ctx, outPath, &buf, contentTypes[kind]); err != nil {
		return fmt.Errorf("%s の書き込みに失敗しました: %w", outPath, err)
	}
	slog.InfoContext(ctx, "成果物を保存したのだ", "kind", kind, "path", outPath)
	return nil
}

// Publish は画像の保存、各形式の書き出し、絵コンテ資料の構築を一括して実行するのだ。
func (p *Publisher) Publish(ctx context.Context, outputDir string, b Bundle) (PublishResult, error) {
	result := PublishResult{Paths: make(map[Kind]string)}

	imagePaths, relPaths, err := p.saveImages(ctx, b.Images, outputDir)
	if err != nil {
		return result, fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	result.ImagePaths = imagePaths

	write := func(kind Kind, name string, payload any) error {
		full, err := ResolveOutputPath(outputDir, name)
		if err != nil {
			return err
		}
		if err := p.PublishFile(ctx, full, kind, payload); err != nil {
			return err
		}
		result.Paths[kind] = full
		return nil
	}

	if len(b.Scenes) > 0 {
		if err := write(KindTSV, DefaultTSVName, b.Scenes); err != nil {
			return result, err
		}
		if err := write(KindStoryboard, DefaultStoryboardName, b.Scenes); err != nil {
			return result, err
		}
		md := BuildMarkdown(b.Title, b.Scenes, b.ScenePrompts, relPaths)
		if err := write(KindMarkdown, DefaultMarkdownName, md); err != nil {
			return result, err
		}
	}
	if len(b.VideoScenes) > 0 {
		if err := write(KindVideo, DefaultVideoName, b.VideoScenes); err != nil {
			return result, err
		}
	}

	if len(b.Scenes) > 0 && len(b.ScenePrompts) > 0 {
		comfy, err := ResolveOutputPath(outputDir, DefaultComfyUIName)
		if err != nil {
			return result, err
		}
		if err := p.PublishFile(ctx, comfy, KindVideo, ComfyUIExport(b.Scenes, b.ScenePrompts)); err != nil {
			return result, err
		}
		result.ComfyUI = comfy

		sheet, err := ResolveOutputPath(outputDir, DefaultSheetName)
		if err != nil {
			return result, err
		}
		urls := imageURLs(b.Images, imagePaths)
		content := FormatSpreadsheetTSV(b.Scenes, b.ScenePrompts, urls)
		if err := p.writer.Write(ctx, sheet, strings.NewReader(content), contentTypes[KindTSV]); err != nil {
			return result, fmt.Errorf("%s の書き込みに失敗しました: %w", sheet, err)
		}
		result.Sheet = sheet
	}

	return result, nil
}

// saveImages は画像データを持つシーンだけを保存し、保存先と Markdown 用の相対パスを返すのだ。
func (p *Publisher) saveImages(ctx context.Context, images map[int]*imagegen.Result, outputDir string) (map[int]string, map[int]string, error) {
	saved := make(map[int]string)
	rel := make(map[int]string)
	if len(images) == 0 {
		return saved, rel, nil
	}

	imgDir, err := ResolveOutputPath(outputDir, DefaultImageDirName)
	if err != nil {
		return nil, nil, err
	}
	for sceneNumber, img := range images {
		if !img.HasData() {
			if img != nil && img.URL != "" {
				rel[sceneNumber] = img.URL
			}
			continue
		}
		base := strings.TrimSuffix(DefaultImageFileName, filepath.Ext(DefaultImageFileName)) + ExtensionFor(img.Image.MimeType)
		name := IndexedFileName(base, sceneNumber)
		fullPath, err := ResolveOutputPath(imgDir, name)
		if err != nil {
			return nil, nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}

		slog.InfoContext(ctx, "シーン画像を保存しています", "scene", sceneNumber, "path", fullPath)
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(img.Image.Data), img.Image.MimeType); err != nil {
			return nil, nil, fmt.Errorf("シーン %d の画像の保存に失敗しました (path: %s): %w", sceneNumber, fullPath, err)
		}
		saved[sceneNumber] = fullPath
		rel[sceneNumber] = path.Join(DefaultImageDirName, name)
	}
	return saved, rel, nil
}

// imageURLs はスプレッドシートに載せる画像の場所を選ぶのだ。URL があればそれを優先するのだ。
func imageURLs(images map[int]*imagegen.Result, saved map[int]string) map[int]string {
	out := make(map[int]string, len(images))
	for n, img := range images {
		switch {
		case img != nil && img.URL != "":
			out[n] = img.URL
		case saved[n] != "":
			out[n] = saved[n]
		}
	}
	return out
}
