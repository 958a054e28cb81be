package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// recordingWait は実際には待たずに待機の呼び出しを記録するのだ。
type recordingWait struct {
	calls []time.Duration
}

func (w *recordingWait) wait(_ context.Context, d time.Duration) error {
	w.calls = append(w.calls, d)
	return nil
}

func TestDo_RetryableThenSuccess(t *testing.T) {
	w := &recordingWait{}
	calls := 0
	fn := func(ctx context.Context, attempt int) (string, string, error) {
		calls++
		if calls <= 2 {
			return "", "", &domain.ProviderError{Provider: "test", Status: 503}
		}
		return "ok", "[...]", nil
	}

	got, report, err := Do(context.Background(), Policy{MaxRetries: 3, Backoff: 5 * time.Second, Wait: w.wait}, fn)
	if err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	if got != "ok" {
		t.Errorf("期待値 'ok', 実際の値 '%s'", got)
	}
	if report.RetryableFailures() != 2 {
		t.Errorf("再試行可能な失敗は2回のはずなのだ: %d", report.RetryableFailures())
	}
	if len(report.Attempts) != 3 || report.Attempts[2].Outcome != Success {
		t.Errorf("試行記録が不正なのだ: %+v", report.Attempts)
	}
	if len(w.calls) != 2 || w.calls[0] != 5*time.Second || w.calls[1] != 5*time.Second {
		t.Errorf("固定バックオフで2回待つはずなのだ: %v", w.calls)
	}
}

func TestDo_TerminalAbortsImmediately(t *testing.T) {
	w := &recordingWait{}
	calls := 0
	fn := func(ctx context.Context, attempt int) (int, string, error) {
		calls++
		return 0, "", &domain.ProviderError{Provider: "test", Status: 401}
	}

	_, report, err := Do(context.Background(), Policy{MaxRetries: 3, Backoff: time.Second, Wait: w.wait}, fn)
	var exhausted *domain.ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("ExhaustedRetriesError を期待したのだ: %v", err)
	}
	if exhausted.Attempts != 1 || calls != 1 {
		t.Errorf("1回目で打ち切るはずなのだ: attempts=%d calls=%d", exhausted.Attempts, calls)
	}
	if len(w.calls) != 0 {
		t.Errorf("終端エラーでは待機しないのだ: %v", w.calls)
	}
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) || provErr.Status != 401 {
		t.Errorf("最後のエラーを保持しているはずなのだ: %v", err)
	}
	if report.RetryableFailures() != 0 {
		t.Errorf("再試行可能な失敗は0回のはずなのだ")
	}
}

func TestDo_Exhausted(t *testing.T) {
	w := &recordingWait{}
	calls := 0
	fn := func(ctx context.Context, attempt int) (int, string, error) {
		calls++
		return 0, "garbage", &domain.InsufficientScenesError{Got: 1, Expected: 10, Ratio: 0.1}
	}

	_, report, err := Do(context.Background(), Policy{MaxRetries: 2, Backoff: time.Millisecond, Wait: w.wait}, fn)
	var exhausted *domain.ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("ExhaustedRetriesError を期待したのだ: %v", err)
	}
	if exhausted.Attempts != 3 || calls != 3 {
		t.Errorf("初回+2回のリトライで3回のはずなのだ: attempts=%d calls=%d", exhausted.Attempts, calls)
	}
	var ins *domain.InsufficientScenesError
	if !errors.As(err, &ins) {
		t.Errorf("最後のエラーをラップしているはずなのだ: %v", err)
	}
	if len(w.calls) != 2 {
		t.Errorf("待機は試行の間だけなのだ: %v", w.calls)
	}
	if report.Attempts[0].Raw != "garbage" {
		t.Errorf("生レスポンスが記録されていないのだ")
	}
}

func TestDo_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(ctx context.Context, attempt int) (int, string, error) {
		cancel()
		return 0, "", &domain.ProviderError{Status: 429}
	}

	start := time.Now()
	_, _, err := Do(ctx, Policy{MaxRetries: 3, Backoff: time.Hour}, fn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("キャンセルを期待したのだ: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("待機中のキャンセルで即座に抜けるはずなのだ")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"429", &domain.ProviderError{Status: 429}, RetryableFailure},
		{"502", &domain.ProviderError{Status: 502}, RetryableFailure},
		{"503", &domain.ProviderError{Status: 503}, RetryableFailure},
		{"504", &domain.ProviderError{Status: 504}, RetryableFailure},
		{"タイムアウト", &domain.ProviderError{Timeout: true}, RetryableFailure},
		{"期限切れ", context.DeadlineExceeded, RetryableFailure},
		{"シーン不足", &domain.InsufficientScenesError{}, RetryableFailure},
		{"必須項目欠落", &domain.MissingFieldError{}, RetryableFailure},
		{"400", &domain.ProviderError{Status: 400}, TerminalFailure},
		{"403", &domain.ProviderError{Status: 403}, TerminalFailure},
		{"404", &domain.ProviderError{Status: 404}, TerminalFailure},
		{"500", &domain.ProviderError{Status: 500}, TerminalFailure},
		{"設定エラー", &domain.ConfigError{Code: domain.CodeCredentialMissing}, TerminalFailure},
		{"キャンセル", context.Canceled, TerminalFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := Classify(tt.err); got != tt.want {
				t.Errorf("期待値 %s, 実際の値 %s", tt.want, got)
			}
		})
	}
}
