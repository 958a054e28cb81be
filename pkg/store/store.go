package store

import (
	"context"
	"errors"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/google/uuid"
)

// ErrNotFound は指定の ID のプロジェクトが無いことを示すのだ。
var ErrNotFound = errors.New("プロジェクトが見つかりません")

// Project は1曲分の作業単位なのだ。歌詞と設定、生成済みの字コンテと動画プロンプトを保持するのだ。
type Project struct {
	ID          uuid.UUID               `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string                  `json:"title" gorm:"size:255"`
	Lyrics      string                  `json:"lyrics" gorm:"type:text"`
	Settings    domain.GenerationConfig `json:"settings" gorm:"serializer:json;type:json"`
	Scenes      []domain.Scene          `json:"scenes" gorm:"serializer:json;type:json"`
	VideoScenes []domain.VideoScene     `json:"videoScenes" gorm:"serializer:json;type:json"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// Store はプロジェクトの永続化の契約です。
type Store interface {
	Save(ctx context.Context, p *Project) error
	Get(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// prepare は保存前に ID と時刻を整えるのだ。
func prepare(p *Project, now time.Time) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	// API キーは保存しないのだ
	p.Settings.APIKey = ""
}
