package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/internal/config"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/generator"
)

// StoryboardRunner は歌詞から日本語の字コンテを作るためのインターフェースなのだ。
type StoryboardRunner interface {
	Run(ctx context.Context, lyrics string) (*generator.StoryboardResult[domain.Scene], error)
}

// LyricStoryboardRunner は CLI の指定を GenerationConfig に詰め替えて Service に渡す実体なのだ。
type LyricStoryboardRunner struct {
	service *generator.Service
	apiKey  string
	model   string
	options config.GenerateOptions
}

// NewLyricStoryboardRunner は、LyricStoryboardRunnerの新しいインスタンスを生成して返すのだ。
func NewLyricStoryboardRunner(svc *generator.Service, apiKey, model string, opts config.GenerateOptions) *LyricStoryboardRunner {
	return &LyricStoryboardRunner{
		service: svc,
		apiKey:  apiKey,
		model:   model,
		options: opts,
	}
}

func (r *LyricStoryboardRunner) Run(ctx context.Context, lyrics string) (*generator.StoryboardResult[domain.Scene], error) {
	cfg, err := GenerationConfigFrom(r.options, lyrics)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = r.apiKey
	cfg.Model = r.model

	res, err := r.service.GenerateStoryboard(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("字コンテの生成に失敗したのだ: %w", err)
	}
	slog.InfoContext(ctx, "字コンテが完成したのだ", "scenes", len(res.Scenes), "attempts", res.Attempts)
	return res, nil
}

// GenerationConfigFrom はフラグの文字列を列挙子に解釈するのだ。スタイル未指定はシネマティックなのだ。
func GenerationConfigFrom(opts config.GenerateOptions, lyrics string) (domain.GenerationConfig, error) {
	style, err := domain.ParseVisualStyle(opts.Style)
	if err != nil {
		return domain.GenerationConfig{}, err
	}
	if style == "" {
		style = domain.StyleCinematic
	}
	angle, err := domain.ParseCameraAngle(opts.CameraAngle)
	if err != nil {
		return domain.GenerationConfig{}, err
	}
	movement, err := domain.ParseCameraMovement(opts.CameraMovement)
	if err != nil {
		return domain.GenerationConfig{}, err
	}
	technique, err := domain.ParseSpecialTechnique(opts.SpecialTechnique)
	if err != nil {
		return domain.GenerationConfig{}, err
	}

	return domain.GenerationConfig{
		Lyrics:           lyrics,
		ArtistName:       opts.ArtistName,
		SongTitle:        opts.SongTitle,
		VisualStyle:      style,
		CameraAngle:      angle,
		CameraMovement:   movement,
		SpecialTechnique: technique,
	}, nil
}
