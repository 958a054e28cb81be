package validator

import (
	"fmt"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// DefaultThreshold は期待件数に対する受理下限の完了率なのだ。
const DefaultThreshold = 0.8

// Options は検証の調整値なのだ。
type Options struct {
	// Threshold は 0 以下なら DefaultThreshold を使うのだ。
	Threshold float64
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

// Converter は信用できない SceneDraft を検証済みの型に変換する関数なのだ。
type Converter[T any] func(d domain.SceneDraft, index int) (T, error)

// Result は受理されたシーン列と完了率なのだ。
type Result[T any] struct {
	Scenes          []T
	CompletionRatio float64
	// Warning は部分的な結果を許容したときだけ設定されるのだ。
	Warning string
}

// Partial は警告付きで受理されたかどうかを返すのだ。
func (r Result[T]) Partial() bool { return r.Warning != "" }

// Validate は件数と必須項目の観点でシーン列を検証するのだ。
// expected が 0 以下なら件数指定なしとして、1件以上あれば受理するのだ。
func Validate[T any](drafts []domain.SceneDraft, expected int, convert Converter[T], opts Options) (Result[T], error) {
	scenes := make([]T, 0, len(drafts))
	for i, d := range drafts {
		s, err := convert(d, i)
		if err != nil {
			return Result[T]{}, err
		}
		scenes = append(scenes, s)
	}

	if expected <= 0 {
		if len(scenes) == 0 {
			return Result[T]{}, &domain.InsufficientScenesError{}
		}
		return Result[T]{Scenes: scenes, CompletionRatio: 1}, nil
	}

	ratio := float64(len(scenes)) / float64(expected)
	switch {
	case ratio >= 1:
		return Result[T]{Scenes: scenes, CompletionRatio: ratio}, nil
	case ratio >= opts.threshold():
		return Result[T]{
			Scenes:          scenes,
			CompletionRatio: ratio,
			Warning:         fmt.Sprintf("シーン数不一致: 期待=%d, 実際=%d (%.0f%%完了)。不完全な結果のまま続行します", expected, len(scenes), ratio*100),
		}, nil
	default:
		return Result[T]{}, &domain.InsufficientScenesError{Got: len(scenes), Expected: expected, Ratio: ratio}
	}
}

// StoryboardScene は字コンテ用の Converter なのだ。
func StoryboardScene(d domain.SceneDraft, index int) (domain.Scene, error) { return d.ToScene(index) }

// VideoScene は動画プロンプト用の Converter なのだ。
func VideoScene(d domain.SceneDraft, index int) (domain.VideoScene, error) {
	return d.ToVideoScene(index)
}
