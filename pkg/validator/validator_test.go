package validator

import (
	"errors"
	"testing"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

func videoDrafts(n int) []domain.SceneDraft {
	drafts := make([]domain.SceneDraft, n)
	for i := range drafts {
		drafts[i] = domain.SceneDraft{"scene": float64(i + 1), "prompt": "cinematic shot"}
	}
	return drafts
}

func TestValidate_CompletionRatio(t *testing.T) {
	tests := []struct {
		name      string
		got       int
		expected  int
		wantRatio float64
		partial   bool
		rejected  bool
	}{
		{"全件そろえば警告なしで受理", 10, 10, 1.0, false, false},
		{"期待以上でも受理", 11, 10, 1.1, false, false},
		{"9/10は警告付きで受理", 9, 10, 0.9, true, false},
		{"4/5はしきい値ちょうどで警告付き受理", 4, 5, 0.8, true, false},
		{"7/10は却下", 7, 10, 0.7, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(videoDrafts(tt.got), tt.expected, VideoScene, Options{})
			if tt.rejected {
				var ins *domain.InsufficientScenesError
				if !errors.As(err, &ins) {
					t.Fatalf("InsufficientScenesError を期待したのだ: %v", err)
				}
				if ins.Ratio != tt.wantRatio || ins.Got != tt.got || ins.Expected != tt.expected {
					t.Errorf("エラーの内容が不正なのだ: %+v", ins)
				}
				return
			}
			if err != nil {
				t.Fatalf("予期しないエラーなのだ: %v", err)
			}
			if res.CompletionRatio != tt.wantRatio {
				t.Errorf("期待値 %v, 実際の値 %v", tt.wantRatio, res.CompletionRatio)
			}
			if res.Partial() != tt.partial {
				t.Errorf("警告の有無が違うのだ: %q", res.Warning)
			}
			if len(res.Scenes) != tt.got {
				t.Errorf("シーン数が違うのだ: %d", len(res.Scenes))
			}
		})
	}
}

func TestValidate_Threshold(t *testing.T) {
	t.Run("しきい値を上げると9/10でも却下されるのだ", func(t *testing.T) {
		_, err := Validate(videoDrafts(9), 10, VideoScene, Options{Threshold: 0.95})
		var ins *domain.InsufficientScenesError
		if !errors.As(err, &ins) {
			t.Fatalf("InsufficientScenesError を期待したのだ: %v", err)
		}
	})
}

func TestValidate_NoExpectedCount(t *testing.T) {
	t.Run("件数指定なしで0件なら却下なのだ", func(t *testing.T) {
		_, err := Validate([]domain.SceneDraft{}, 0, StoryboardScene, Options{})
		var ins *domain.InsufficientScenesError
		if !errors.As(err, &ins) {
			t.Fatalf("InsufficientScenesError を期待したのだ: %v", err)
		}
	})

	t.Run("件数指定なしなら1件でも受理なのだ", func(t *testing.T) {
		drafts := []domain.SceneDraft{{"sceneNumber": float64(1), "cutDescription": "夜明け"}}
		res, err := Validate(drafts, 0, StoryboardScene, Options{})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if res.CompletionRatio != 1 || res.Partial() {
			t.Errorf("完全受理を期待したのだ: %+v", res)
		}
	})
}

func TestValidate_MissingField(t *testing.T) {
	drafts := videoDrafts(3)
	delete(drafts[1], "prompt")

	_, err := Validate(drafts, 3, VideoScene, Options{})
	var mf *domain.MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("MissingFieldError を期待したのだ: %v", err)
	}
	if mf.Index != 1 {
		t.Errorf("期待値 1, 実際の値 %d", mf.Index)
	}
}

func TestValidate_DefaultsFilled(t *testing.T) {
	res, err := Validate(videoDrafts(1), 1, VideoScene, Options{})
	if err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	s := res.Scenes[0]
	if s.NegativePrompt != domain.DefaultNegativePrompt || s.DurationSeconds != domain.DefaultVideoSceneSeconds {
		t.Errorf("既定値が補われていないのだ: %+v", s)
	}
}
