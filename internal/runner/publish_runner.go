package runner

import (
	"context"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/internal/config"
	"github.com/shouni/go-lyric-storyboard/pkg/publisher"
)

// PublisherRunner はパブリッシュ処理のインターフェースです。
type PublisherRunner interface {
	Run(ctx context.Context, bundle publisher.Bundle) (publisher.PublishResult, error)
}

// DefaultPublisherRunner は pkg/publisher を利用した標準実装です。
type DefaultPublisherRunner struct {
	options   config.GenerateOptions
	publisher *publisher.Publisher
}

func NewDefaultPublisherRunner(options config.GenerateOptions, pub *publisher.Publisher) *DefaultPublisherRunner {
	return &DefaultPublisherRunner{
		options:   options,
		publisher: pub,
	}
}

func (pr *DefaultPublisherRunner) Run(ctx context.Context, bundle publisher.Bundle) (publisher.PublishResult, error) {
	dir := pr.options.OutputDir
	if dir == "" {
		dir = config.DefaultOutputDir
	}
	if bundle.Title == "" {
		bundle.Title = pr.options.SongTitle
	}

	res, err := pr.publisher.Publish(ctx, dir, bundle)
	if err != nil {
		return res, err
	}
	slog.InfoContext(ctx, "成果物の書き出しが完了したのだ", "dir", dir, "files", len(res.Paths), "images", len(res.ImagePaths))
	return res, nil
}
