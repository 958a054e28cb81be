package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/google/uuid"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("保存するとIDと時刻が付き、APIキーは消えるのだ", func(t *testing.T) {
		s := NewMemoryStore()
		p := &Project{
			Title:    "曲",
			Settings: domain.GenerationConfig{APIKey: "AIzaSySECRET", VisualStyle: domain.StyleAnime},
			Scenes:   []domain.Scene{{SceneNumber: 1, CutDescription: "a"}},
		}
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if p.ID == uuid.Nil || p.CreatedAt.IsZero() {
			t.Fatalf("ID と作成時刻が必要なのだ: %+v", p)
		}

		got, err := s.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if got.Settings.APIKey != "" {
			t.Error("API キーを保存してはいけないのだ")
		}
		if got.Settings.VisualStyle != domain.StyleAnime || len(got.Scenes) != 1 {
			t.Errorf("保存内容が一致しないのだ: %+v", got)
		}

		got.Scenes[0].CutDescription = "変更"
		again, _ := s.Get(ctx, p.ID)
		if again.Scenes[0].CutDescription != "a" {
			t.Error("取得したコピーの変更が保存内容に漏れているのだ")
		}
	})

	t.Run("一覧は更新が新しい順なのだ", func(t *testing.T) {
		s := NewMemoryStore()
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		tick := 0
		s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

		first := &Project{Title: "first"}
		second := &Project{Title: "second"}
		s.Save(ctx, first)
		s.Save(ctx, second)
		s.Save(ctx, first)

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(list) != 2 || list[0].Title != "first" {
			t.Errorf("更新順になっていないのだ: %+v", list)
		}
		if !list[0].CreatedAt.Equal(base.Add(time.Minute)) {
			t.Errorf("作成時刻は上書きしないのだ: %v", list[0].CreatedAt)
		}
	})

	t.Run("削除と未検出なのだ", func(t *testing.T) {
		s := NewMemoryStore()
		p := &Project{Title: "x"}
		s.Save(ctx, p)
		if err := s.Delete(ctx, p.ID); err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if _, err := s.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("ErrNotFound を期待したのだ: %v", err)
		}
		if err := s.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("ErrNotFound を期待したのだ: %v", err)
		}
	})

	t.Run("並行に保存しても壊れないのだ", func(t *testing.T) {
		s := NewMemoryStore()
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Save(ctx, &Project{Title: "p"})
			}()
		}
		wg.Wait()
		list, _ := s.List(ctx)
		if len(list) != 20 {
			t.Errorf("期待値 20, 実際の値 %d", len(list))
		}
	})
}
