package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/generator"
	"github.com/shouni/go-lyric-storyboard/pkg/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	// APIKeyHeader は呼び出しごとの認証情報を受け取るヘッダなのだ。
	APIKeyHeader = "X-API-Key"
	// RequestIDHeader はリクエストを追跡するための ID を返すヘッダなのだ。
	RequestIDHeader = "X-Request-ID"

	shutdownTimeout = 10 * time.Second
)

// Args は Server の依存関係なのだ。
type Args struct {
	Service          *generator.Service
	ScenePrompts     *generator.ScenePromptService
	Store            store.Store
	ScenePromptModel string
	BatchDelay       time.Duration
	Logger           *slog.Logger
}

// Server は生成機能を HTTP と WebSocket で公開するのだ。
type Server struct {
	service          *generator.Service
	scenePrompts     *generator.ScenePromptService
	store            store.Store
	scenePromptModel string
	batchDelay       time.Duration
	log              *slog.Logger
}

// New は依存関係を検証して Server を初期化します。
func New(args Args) (*Server, error) {
	if args.Service == nil {
		return nil, fmt.Errorf("generator.Service は必須です")
	}
	if args.ScenePrompts == nil {
		return nil, fmt.Errorf("ScenePromptService は必須です")
	}
	if args.Store == nil {
		return nil, fmt.Errorf("Store は必須です")
	}
	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:          args.Service,
		scenePrompts:     args.ScenePrompts,
		store:            args.Store,
		scenePromptModel: args.ScenePromptModel,
		batchDelay:       args.BatchDelay,
		log:              logger,
	}, nil
}

// Router はルーティングを組み立てた gin.Engine を返すのだ。
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogMiddleware(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/storyboard", s.generateStoryboard)
		api.POST("/video-prompts", s.generateVideoPrompts)
		api.POST("/export/tsv", s.exportTSV)

		api.POST("/projects", s.createProject)
		api.GET("/projects", s.listProjects)
		api.GET("/projects/:id", s.getProject)
		api.DELETE("/projects/:id", s.deleteProject)
	}
	r.GET("/ws/scene-prompts", s.scenePromptsWebSocket)
	return r
}

// Run は ctx が終わるまで待ち受け、終わったら猶予付きで停止するのだ。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.log.Info("HTTP サーバーを起動したのだ", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP サーバーが異常終了しました: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("HTTP サーバーを停止するのだ")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
