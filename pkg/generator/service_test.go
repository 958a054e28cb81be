package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/provider"
	"github.com/shouni/go-lyric-storyboard/pkg/retry"

	"github.com/google/go-cmp/cmp"
)

const (
	testGeminiKey     = "AIzaSyTEST"
	testOpenRouterKey = "sk-or-v1-test"
)

type fakeResponse struct {
	text string
	err  error
}

// fakeGenerator は用意した応答を順番に返すテキスト生成なのだ。
type fakeGenerator struct {
	responses []fakeResponse
	calls     int
	system    string
	user      string
	model     string
}

func (f *fakeGenerator) Generate(_ context.Context, system, user, model string) (string, error) {
	f.system, f.user, f.model = system, user, model
	if f.calls >= len(f.responses) {
		return "", errors.New("応答が用意されていないのだ")
	}
	r := f.responses[f.calls]
	f.calls++
	return r.text, r.err
}

type factoryCounter struct {
	gen   *fakeGenerator
	calls int
}

func (c *factoryCounter) factory() provider.Factory {
	return func(context.Context, string) (provider.TextGenerator, error) {
		c.calls++
		return c.gen, nil
	}
}

func storyboardJSON(n int) string {
	scenes := make([]map[string]any, n)
	for i := range scenes {
		scenes[i] = map[string]any{
			"sceneNumber":    i + 1,
			"duration":       "3秒",
			"cutDescription": fmt.Sprintf("カット%d", i+1),
			"audioSE":        "",
			"telop":          "",
			"narration":      "",
			"directionMemo":  "夕暮れ",
		}
	}
	b, _ := json.Marshal(scenes)
	return string(b)
}

func videoJSON(durations ...int) string {
	scenes := make([]map[string]any, len(durations))
	for i, d := range durations {
		scenes[i] = map[string]any{
			"scene":            i + 1,
			"timestamp":        "9:99-9:99",
			"duration_seconds": d,
			"prompt":           fmt.Sprintf("cinematic shot %d", i+1),
		}
	}
	b, _ := json.Marshal(scenes)
	return string(b)
}

func lyrics(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

type waitRecorder struct{ waits []time.Duration }

func (w *waitRecorder) policy() *retry.Policy {
	return &retry.Policy{
		MaxRetries: 3,
		Backoff:    5 * time.Second,
		Wait: func(_ context.Context, d time.Duration) error {
			w.waits = append(w.waits, d)
			return nil
		},
	}
}

func newService(t *testing.T, gemini, openRouter *factoryCounter, w *waitRecorder) *Service {
	t.Helper()
	svc, err := New(Args{
		Gemini:     gemini.factory(),
		OpenRouter: openRouter.factory(),
		Policy:     w.policy(),
	})
	if err != nil {
		t.Fatalf("Service の初期化に失敗したのだ: %v", err)
	}
	return svc
}

func TestGenerateStoryboard(t *testing.T) {
	t.Run("16行の歌詞から6シーンを受け取るのだ", func(t *testing.T) {
		gem := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{{text: storyboardJSON(6)}}}}
		svc := newService(t, gem, &factoryCounter{}, &waitRecorder{})

		res, err := svc.GenerateStoryboard(context.Background(), domain.GenerationConfig{
			Lyrics:      lyrics(16),
			VisualStyle: domain.StyleCinematic,
			APIKey:      testGeminiKey,
		})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(res.Scenes) != 6 || res.Attempts != 1 || res.Warning != "" || res.CompletionRatio != 1 {
			t.Fatalf("結果が不正なのだ: %+v", res)
		}
		for i, s := range res.Scenes {
			if s.SceneNumber != i+1 {
				t.Errorf("シーン番号が連番ではないのだ: %d -> %d", i, s.SceneNumber)
			}
			if s.Timestamp != "" {
				t.Errorf("字コンテにはタイムスタンプを付けないのだ: %q", s.Timestamp)
			}
		}
		if gem.gen.model != provider.DefaultGeminiModel {
			t.Errorf("既定のモデルを使うはずなのだ: %s", gem.gen.model)
		}
		if !strings.Contains(gem.gen.user, "4〜8 シーン") {
			t.Errorf("目標シーン数が伝わっていないのだ:\n%s", gem.gen.user)
		}
	})

	t.Run("コードフェンスで囲まれた応答も読むのだ", func(t *testing.T) {
		gem := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{{text: "```json\n" + storyboardJSON(2) + "\n```"}}}}
		svc := newService(t, gem, &factoryCounter{}, &waitRecorder{})

		res, err := svc.GenerateStoryboard(context.Background(), domain.GenerationConfig{Lyrics: lyrics(4), APIKey: testGeminiKey})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(res.Scenes) != 2 {
			t.Errorf("期待値 2, 実際の値 %d", len(res.Scenes))
		}
	})

	t.Run("認証情報が無ければ呼び出さないのだ", func(t *testing.T) {
		tests := []struct {
			name string
			key  string
			want domain.ErrorCode
		}{
			{"キーが空なのだ", "", domain.CodeCredentialMissing},
			{"キーの形式が違うのだ", "sk-or-v1-x", domain.CodeCredentialMalformed},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				gem := &factoryCounter{gen: &fakeGenerator{}}
				svc := newService(t, gem, &factoryCounter{}, &waitRecorder{})
				_, err := svc.GenerateStoryboard(context.Background(), domain.GenerationConfig{Lyrics: lyrics(4), APIKey: tt.key})
				var cfgErr *domain.ConfigError
				if !errors.As(err, &cfgErr) || cfgErr.Code != tt.want {
					t.Fatalf("ConfigError(%s) を期待したのだ: %v", tt.want, err)
				}
				if gem.calls != 0 || gem.gen.calls != 0 {
					t.Error("プロバイダを呼び出してはいけないのだ")
				}
			})
		}
	})

	t.Run("空の歌詞は呼び出さないのだ", func(t *testing.T) {
		gem := &factoryCounter{gen: &fakeGenerator{}}
		svc := newService(t, gem, &factoryCounter{}, &waitRecorder{})
		_, err := svc.GenerateStoryboard(context.Background(), domain.GenerationConfig{Lyrics: " \n", APIKey: testGeminiKey})
		if domain.CodeOf(err) != domain.CodeEmptyInput {
			t.Fatalf("EmptyInput を期待したのだ: %v", err)
		}
		if gem.gen.calls != 0 {
			t.Error("プロバイダを呼び出してはいけないのだ")
		}
	})

	t.Run("503の後で成功するのだ", func(t *testing.T) {
		unavailable := &domain.ProviderError{Provider: domain.ProviderGemini, Status: 503}
		gem := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{
			{err: unavailable},
			{err: unavailable},
			{text: storyboardJSON(3)},
		}}}
		w := &waitRecorder{}
		svc := newService(t, gem, &factoryCounter{}, w)

		res, err := svc.GenerateStoryboard(context.Background(), domain.GenerationConfig{Lyrics: lyrics(8), APIKey: testGeminiKey})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if res.Attempts != 3 {
			t.Errorf("期待値 3, 実際の値 %d", res.Attempts)
		}
		if diff := cmp.Diff([]time.Duration{5 * time.Second, 5 * time.Second}, w.waits); diff != "" {
			t.Errorf("待機時間が不正なのだ (-want +got):\n%s", diff)
		}
	})

	t.Run("シーンが取れない応答はリトライして尽きるのだ", func(t *testing.T) {
		gem := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{
			{text: "すみません"}, {text: "[]"}, {text: "null"}, {text: "{}"},
		}}}
		svc := newService(t, gem, &factoryCounter{}, &waitRecorder{})

		_, err := svc.GenerateStoryboard(context.Background(), domain.GenerationConfig{Lyrics: lyrics(8), APIKey: testGeminiKey})
		var exhausted *domain.ExhaustedRetriesError
		if !errors.As(err, &exhausted) || exhausted.Attempts != 4 {
			t.Fatalf("4回試行した ExhaustedRetriesError を期待したのだ: %v", err)
		}
		if domain.CodeOf(err) != domain.CodeInsufficientScenes {
			t.Errorf("最後の原因はシーン不足のはずなのだ: %s", domain.CodeOf(err))
		}
	})

	t.Run("MaxRetries 0ならリトライしないのだ", func(t *testing.T) {
		unavailable := &domain.ProviderError{Provider: domain.ProviderGemini, Status: 503}
		gem := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{
			{err: unavailable},
			{text: storyboardJSON(3)},
		}}}
		w := &waitRecorder{}
		policy := w.policy()
		policy.MaxRetries = 0
		policy.Backoff = 0
		svc, err := New(Args{Gemini: gem.factory(), OpenRouter: (&factoryCounter{}).factory(), Policy: policy})
		if err != nil {
			t.Fatalf("Service の初期化に失敗したのだ: %v", err)
		}

		_, err = svc.GenerateStoryboard(context.Background(), domain.GenerationConfig{Lyrics: lyrics(8), APIKey: testGeminiKey})
		var exhausted *domain.ExhaustedRetriesError
		if !errors.As(err, &exhausted) || exhausted.Attempts != 1 {
			t.Fatalf("1回だけ試行した ExhaustedRetriesError を期待したのだ: %v", err)
		}
		if gem.gen.calls != 1 || len(w.waits) != 0 {
			t.Errorf("呼び出しは1回で待機は無いはずなのだ: calls=%d waits=%v", gem.gen.calls, w.waits)
		}
	})
}

func TestGenerateVideoPrompts(t *testing.T) {
	existing := []domain.Scene{
		{SceneNumber: 1, Duration: "3秒", CutDescription: "a"},
		{SceneNumber: 2, Duration: "4秒", CutDescription: "b"},
		{SceneNumber: 3, Duration: "3秒", CutDescription: "c"},
		{SceneNumber: 4, Duration: "5秒", CutDescription: "d"},
		{SceneNumber: 5, Duration: "4秒", CutDescription: "e"},
	}

	t.Run("5シーン中4シーンなら警告付きで受理するのだ", func(t *testing.T) {
		or := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{{text: videoJSON(3, 4, 3, 5)}}}}
		svc := newService(t, &factoryCounter{}, or, &waitRecorder{})

		res, err := svc.GenerateVideoPrompts(context.Background(), testOpenRouterKey, domain.VideoPromptRequest{
			Style:          "Cinematic",
			ExistingScenes: existing,
		})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if res.CompletionRatio != 0.8 || res.Warning == "" {
			t.Errorf("警告付きの 80%% 完了を期待したのだ: ratio=%v warning=%q", res.CompletionRatio, res.Warning)
		}
		var got []string
		for _, s := range res.Scenes {
			got = append(got, s.Timestamp)
		}
		want := []string{"0:00-0:03", "0:03-0:07", "0:07-0:10", "0:10-0:15"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("タイムスタンプが不正なのだ (-want +got):\n%s", diff)
		}
		if res.Scenes[0].NegativePrompt != domain.DefaultNegativePrompt {
			t.Errorf("ネガティブプロンプトが補完されていないのだ: %q", res.Scenes[0].NegativePrompt)
		}
		if !strings.Contains(or.gen.system, "EXACTLY 5") {
			t.Error("シーン数ちょうどを要求していないのだ")
		}
	})

	t.Run("歌詞から直接作るときは件数を問わないのだ", func(t *testing.T) {
		or := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{{text: "Here you go:\n" + videoJSON(4, 4, 4)}}}}
		svc := newService(t, &factoryCounter{}, or, &waitRecorder{})

		res, err := svc.GenerateVideoPrompts(context.Background(), testOpenRouterKey, domain.VideoPromptRequest{Lyrics: lyrics(16)})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(res.Scenes) != 3 || res.Scenes[2].Timestamp != "0:08-0:12" {
			t.Errorf("結果が不正なのだ: %+v", res.Scenes)
		}
		if or.gen.model != provider.DefaultOpenRouterModel {
			t.Errorf("既定のモデルを使うはずなのだ: %s", or.gen.model)
		}
	})

	t.Run("7割ではリトライするのだ", func(t *testing.T) {
		or := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{
			{text: videoJSON(4, 4, 4)},
			{text: videoJSON(4, 4, 4, 4, 4)},
		}}}
		w := &waitRecorder{}
		svc := newService(t, &factoryCounter{}, or, w)

		res, err := svc.GenerateVideoPrompts(context.Background(), testOpenRouterKey, domain.VideoPromptRequest{ExistingScenes: existing})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if res.Attempts != 2 || len(res.Scenes) != 5 || len(w.waits) != 1 {
			t.Errorf("1回リトライして全件を受け取るはずなのだ: attempts=%d scenes=%d waits=%d", res.Attempts, len(res.Scenes), len(w.waits))
		}
	})

	t.Run("401は即座に打ち切るのだ", func(t *testing.T) {
		or := &factoryCounter{gen: &fakeGenerator{responses: []fakeResponse{
			{err: &domain.ProviderError{Provider: domain.ProviderOpenRouter, Status: 401}},
		}}}
		w := &waitRecorder{}
		svc := newService(t, &factoryCounter{}, or, w)

		_, err := svc.GenerateVideoPrompts(context.Background(), testOpenRouterKey, domain.VideoPromptRequest{Lyrics: lyrics(4)})
		if domain.CodeOf(err) != domain.CodeUnauthorized {
			t.Fatalf("Unauthorized を期待したのだ: %v", err)
		}
		if or.gen.calls != 1 || len(w.waits) != 0 {
			t.Errorf("待機もリトライもしないのだ: calls=%d waits=%d", or.gen.calls, len(w.waits))
		}
	})

	t.Run("OpenRouterのキーが空なら呼び出さないのだ", func(t *testing.T) {
		or := &factoryCounter{gen: &fakeGenerator{}}
		svc := newService(t, &factoryCounter{}, or, &waitRecorder{})
		_, err := svc.GenerateVideoPrompts(context.Background(), "", domain.VideoPromptRequest{Lyrics: lyrics(4)})
		if domain.CodeOf(err) != domain.CodeCredentialMissing || or.calls != 0 {
			t.Fatalf("CredentialMissing で即座に返すはずなのだ: %v", err)
		}
	})
}

func TestNew(t *testing.T) {
	if _, err := New(Args{}); err == nil {
		t.Error("Factory が無ければエラーなのだ")
	}
}

func TestScenePromptService_GenerateAll(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{text: "  wide shot of a city  "},
		{err: &domain.ProviderError{Provider: domain.ProviderOpenRouter, Status: 500}},
		{text: "close-up"},
	}}
	counter := &factoryCounter{gen: gen}
	svc, err := NewScenePromptService(counter.factory(), nil)
	if err != nil {
		t.Fatalf("初期化に失敗したのだ: %v", err)
	}

	scenes := []domain.Scene{
		{SceneNumber: 1, CutDescription: "街"},
		{SceneNumber: 2, CutDescription: "空"},
		{SceneNumber: 3, CutDescription: "顔"},
	}
	var progress []batch.Progress
	got, err := svc.GenerateAll(context.Background(), testOpenRouterKey, "m", scenes, batch.Options{
		Delay: time.Millisecond,
		Observer: batch.ObserverFunc(func(_ context.Context, p batch.Progress) {
			progress = append(progress, p)
		}),
	})
	if err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	if diff := cmp.Diff([]string{"wide shot of a city", "", "close-up"}, got); diff != "" {
		t.Errorf("結果が不正なのだ (-want +got):\n%s", diff)
	}
	if len(progress) != 3 || progress[1].Err == nil {
		t.Errorf("失敗も進捗として通知するのだ: %+v", progress)
	}
	if counter.calls != 1 {
		t.Errorf("クライアントは1度だけ作るのだ: %d", counter.calls)
	}
}
