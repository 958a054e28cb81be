package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay はアイテム間の固定待機時間なのだ。無料枠のレート制限に合わせているのだ。
const DefaultDelay = 1 * time.Second

// Progress は1アイテム処理後の進捗通知なのだ。
type Progress struct {
	Completed int
	Total     int
	Index     int // 0 始まり
	Err       error
}

// Observer は進捗の受け口なのだ。CLI のログや WebSocket 配信がこれを実装するのだ。
type Observer interface {
	OnProgress(ctx context.Context, p Progress)
}

// ObserverFunc は関数を Observer として使うためのアダプタなのだ。
type ObserverFunc func(ctx context.Context, p Progress)

func (f ObserverFunc) OnProgress(ctx context.Context, p Progress) { f(ctx, p) }

// Options はバッチ実行の設定なのだ。
type Options struct {
	// Delay は 0 以下なら DefaultDelay を使うのだ。
	Delay    time.Duration
	Observer Observer
}

// Run は items を厳密に1件ずつ順番に処理するのだ。
// 失敗したアイテムはゼロ値になり、バッチは止まらないのだ。ctx がキャンセルされたらそこで打ち切るのだ。
func Run[In, Out any](ctx context.Context, items []In, opts Options, fn func(ctx context.Context, index int, item In) (Out, error)) ([]Out, error) {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	results := make([]Out, len(items))
	failed := 0
	for i, item := range items {
		if err := limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("バッチ処理が中断されました (%d/%d 完了): %w", i, len(items), err)
		}

		out, err := fn(ctx, i, item)
		if err != nil {
			if ctx.Err() != nil {
				return results, fmt.Errorf("バッチ処理が中断されました (%d/%d 完了): %w", i, len(items), ctx.Err())
			}
			failed++
			slog.WarnContext(ctx, "アイテムの処理に失敗したのだ。空の結果で続行するのだ",
				"index", i,
				"error", err)
		} else {
			results[i] = out
		}

		if opts.Observer != nil {
			opts.Observer.OnProgress(ctx, Progress{Completed: i + 1, Total: len(items), Index: i, Err: err})
		}
	}

	slog.InfoContext(ctx, "バッチ処理が完了したのだ", "total", len(items), "failed", failed)
	return results, nil
}
