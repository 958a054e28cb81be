package builder

import (
	"github.com/shouni/go-lyric-storyboard/internal/config"

	"github.com/shouni/go-lyric-storyboard/pkg/generator"
	"github.com/shouni/go-lyric-storyboard/pkg/prompts"
	"github.com/shouni/go-lyric-storyboard/pkg/publisher"
	"github.com/shouni/go-lyric-storyboard/pkg/store"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/httpkit"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config       *config.Config                // Configは、環境変数と設定ファイルから読み込まれたグローバルな設定です。
	Options      config.GenerateOptions        // Optionsは、コマンドラインから渡された実行時の設定です。
	Service      *generator.Service            // Serviceは、字コンテと動画プロンプトの生成窓口です。
	ScenePrompts *generator.ScenePromptService // ScenePromptsは、シーンごとの画像プロンプト生成です。
	Prompts      prompts.Builder               // Promptsは、埋め込みテンプレートから構築したプロンプトビルダーです。
	Store        store.Store                   // Storeは、プロジェクトの保存先です（MySQL かメモリ）。
	objectWriter publisher.OutputWriter        // objectWriter は s3:// への書き込みに使う MinIO クライアント（未設定なら nil）
	httpClient   httpkit.HTTPClient            // httpClient は画像の取得に使う共通クライアント
	imageCache   *cache.Cache                  // imageCache は画像生成コアと生成結果で共有するキャッシュ
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	svc *generator.Service,
	scenePrompts *generator.ScenePromptService,
	pb prompts.Builder,
	st store.Store,
	objectWriter publisher.OutputWriter,
	httpClient httpkit.HTTPClient,
	imageCache *cache.Cache,
) AppContext {
	return AppContext{
		Config:       cfg,
		Options:      cfg.Options,
		Service:      svc,
		ScenePrompts: scenePrompts,
		Prompts:      pb,
		Store:        st,
		objectWriter: objectWriter,
		httpClient:   httpClient,
		imageCache:   imageCache,
	}
}
