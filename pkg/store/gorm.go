package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// GormStore は gorm と MySQL でプロジェクトを保存するのだ。
type GormStore struct {
	db *gorm.DB
}

// OpenMySQL は DSN から接続し、テーブルを自動作成するのだ。
func OpenMySQL(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("MySQL の DSN は必須です")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("GORM 初期化に失敗しました: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("接続プールの取得に失敗しました: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormStore(db)
}

// NewGormStore は既存の接続を使うのだ。AutoMigrate をここで実行するのだ。
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm.DB は必須です")
	}
	if err := db.AutoMigrate(&Project{}); err != nil {
		return nil, fmt.Errorf("テーブルの自動作成に失敗しました: %w", err)
	}
	slog.Info("データベースの準備ができたのだ")
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, p *Project) error {
	prepare(p, time.Now())
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("プロジェクトの保存に失敗しました (id=%s): %w", p.ID, err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	var p Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました (id=%s): %w", id, err)
	}
	return &p, nil
}

func (s *GormStore) List(ctx context.Context) ([]Project, error) {
	var ps []Project
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&ps).Error; err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return ps, nil
}

func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Project{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました (id=%s): %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
