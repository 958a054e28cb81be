package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// OutputWriter はデータを外部ストレージに保存するためのインターフェースです。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// LocalWriter はローカルのファイルシステムに書き出すのだ。
type LocalWriter struct{}

// Write は親ディレクトリを作ってからファイルを書くのだ。
func (LocalWriter) Write(_ context.Context, path string, r io.Reader, _ string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ディレクトリの作成に失敗しました (%s): %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗しました (%s): %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("ファイルの書き込みに失敗しました (%s): %w", path, err)
	}
	return nil
}

// MinioConfig は S3 互換ストレージへの接続情報なのだ。
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioWriter は s3://bucket/key 形式のパスへ minio-go で書き出すのだ。
type MinioWriter struct {
	client  *minio.Client
	mu      sync.Mutex
	checked map[string]bool
}

// NewMinioWriter はクライアントを初期化するのだ。バケットは初回書き込み時に用意するのだ。
func NewMinioWriter(cfg MinioConfig) (*MinioWriter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO のエンドポイントは必須です")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO クライアントの初期化に失敗しました: %w", err)
	}
	return &MinioWriter{client: client, checked: make(map[string]bool)}, nil
}

// Write はオブジェクトとして保存するのだ。
func (w *MinioWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	bucket, key, err := SplitObjectPath(path)
	if err != nil {
		return err
	}
	if err := w.ensureBucket(ctx, bucket); err != nil {
		return err
	}

	// サイズを確定させるためにいったんバッファに読むのだ
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("出力データの読み込みに失敗しました: %w", err)
	}
	_, err = w.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("オブジェクトのアップロードに失敗しました (%s): %w", path, err)
	}
	slog.DebugContext(ctx, "オブジェクトを保存したのだ", "bucket", bucket, "key", key, "size", len(data))
	return nil
}

func (w *MinioWriter) ensureBucket(ctx context.Context, bucket string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.checked[bucket] {
		return nil
	}

	exists, err := w.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("バケットの確認に失敗しました (%s): %w", bucket, err)
	}
	if !exists {
		if err := w.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("バケットの作成に失敗しました (%s): %w", bucket, err)
		}
		slog.InfoContext(ctx, "バケットを作成したのだ", "bucket", bucket)
	}
	w.checked[bucket] = true
	return nil
}

// ResolveWriter は出力先のパスに合う OutputWriter を選ぶのだ。
// s3:// なのに MinIO が設定されていなければエラーなのだ。
func ResolveWriter(path string, minioWriter OutputWriter) (OutputWriter, error) {
	if !IsObjectStoragePath(path) {
		return LocalWriter{}, nil
	}
	if minioWriter == nil {
		return nil, fmt.Errorf("出力先 %s にはオブジェクトストレージの設定 (MINIO_ENDPOINT) が必要です", path)
	}
	return minioWriter, nil
}
