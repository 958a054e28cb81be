package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

const (
	// DefaultMaxRetries は初回の後に許すリトライ回数なのだ。
	DefaultMaxRetries = 3
	// DefaultBackoff は試行間の固定待機時間なのだ。
	DefaultBackoff = 5 * time.Second
)

// Outcome は1回の試行の分類結果なのだ。
type Outcome int

const (
	Success Outcome = iota
	RetryableFailure
	TerminalFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RetryableFailure:
		return "retryable"
	default:
		return "terminal"
	}
}

// Classify は失敗を再試行可能か終端かに分類し、構造化コードを添えて返すのだ。
func Classify(err error) (Outcome, domain.ErrorCode) {
	if err == nil {
		return Success, ""
	}
	code := domain.CodeOf(err)
	switch code {
	case domain.CodeRateLimited,
		domain.CodeServerUnavailable,
		domain.CodeTimeout,
		domain.CodeInsufficientScenes,
		domain.CodeMissingField:
		return RetryableFailure, code
	}
	return TerminalFailure, code
}

// Policy はリトライの上限と固定バックオフなのだ。
type Policy struct {
	MaxRetries int
	Backoff    time.Duration
	// Wait は待機の差し替え用なのだ。nil なら ctx に協調するタイマー待ちを使うのだ。
	Wait func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy は標準のリトライ設定なのだ。
func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, Backoff: DefaultBackoff}
}

// Attempt は1回分の生成試行の記録なのだ。ループの中でだけ意味を持つのだ。
type Attempt struct {
	Index   int // 1 始まり
	Raw     string
	Outcome Outcome
	Code    domain.ErrorCode
	Err     error
}

// Report はループ全体の試行履歴なのだ。
type Report struct {
	Attempts []Attempt
}

// RetryableFailures は再試行可能として記録された失敗の数なのだ。
func (r *Report) RetryableFailures() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Outcome == RetryableFailure {
			n++
		}
	}
	return n
}

// Func は1回分の試行なのだ。生のレスポンス文字列はログと記録のためだけに返すのだ。
type Func[T any] func(ctx context.Context, attempt int) (T, string, error)

// Do は fn を上限付きで繰り返し、成功した結果だけを返すのだ。
// 終端エラーは待機なしで即座に打ち切り、部分的な結果は返さないのだ。
func Do[T any](ctx context.Context, p Policy, fn Func[T]) (T, *Report, error) {
	var zero T
	report := &Report{}
	wait := p.Wait
	if wait == nil {
		wait = sleep
	}
	maxAttempts := max(p.MaxRetries, 0) + 1

	var lastErr error
	for i := 1; i <= maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, report, &domain.ExhaustedRetriesError{Attempts: i - 1, Last: errors.Join(lastErr, err)}
		}

		logger := slog.With("attempt", i, "max_attempts", maxAttempts)
		result, raw, err := fn(ctx, i)
		outcome, code := Classify(err)
		// 呼び出し元のキャンセルは、試行内で期限切れに見えても終端として扱うのだ
		if err != nil && ctx.Err() != nil {
			outcome, code = TerminalFailure, domain.CodeOf(ctx.Err())
			err = errors.Join(err, ctx.Err())
		}
		report.Attempts = append(report.Attempts, Attempt{Index: i, Raw: raw, Outcome: outcome, Code: code, Err: err})

		switch outcome {
		case Success:
			if i > 1 {
				logger.InfoContext(ctx, "リトライで生成に成功したのだ")
			}
			return result, report, nil
		case TerminalFailure:
			logger.ErrorContext(ctx, "再試行できないエラーなので打ち切るのだ", "code", code, "error", err)
			return zero, report, &domain.ExhaustedRetriesError{Attempts: i, Last: err}
		}

		lastErr = err
		if i == maxAttempts {
			break
		}
		logger.WarnContext(ctx, "再試行可能なエラーなのだ。待ってからリトライするのだ",
			"code", code,
			"backoff", p.Backoff,
			"error", err)
		if err := wait(ctx, p.Backoff); err != nil {
			return zero, report, &domain.ExhaustedRetriesError{Attempts: i, Last: errors.Join(lastErr, err)}
		}
	}

	slog.ErrorContext(ctx, "すべてのリトライが失敗したのだ", "attempts", maxAttempts, "error", lastErr)
	return zero, report, &domain.ExhaustedRetriesError{Attempts: maxAttempts, Last: lastErr}
}

// sleep は ctx に協調する待機なのだ。ブロックせずにキャンセルで抜けられるのだ。
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
