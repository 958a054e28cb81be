package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	imgports "github.com/shouni/gemini-image-kit/ports"
	"golang.org/x/sync/singleflight"
)

// 画像キャッシュの既定値なのだ
const (
	DefaultCacheTTL     = 1 * time.Hour
	DefaultCacheCleanup = 30 * time.Minute

	// gemini-image-kit の File API 用キーと混ざらないように付けるのだ
	cacheKeyPrefix = "scene_image:"
)

// Cached は同じプロンプトとシードの画像を使い回す Generator なのだ。
// 同時に来た同一リクエストは1回の生成にまとめるのだ。
type Cached struct {
	next  Generator
	store *cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewCached は next をキャッシュで包むのだ。store は gemini-image-kit のコアと共有できるのだ。
func NewCached(next Generator, store *cache.Cache, ttl time.Duration) *Cached {
	if store == nil {
		store = cache.New(DefaultCacheTTL, DefaultCacheCleanup)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		next:  next,
		store: store,
		ttl:   ttl,
	}
}

// Generate はキャッシュにあればそれを返し、無ければ生成して保存するのだ。
func (c *Cached) Generate(ctx context.Context, req imgports.GenerationOptions) (*Result, error) {
	key := cacheKey(req)
	if v, ok := c.store.Get(key); ok {
		if res, ok := v.(*Result); ok {
			slog.DebugContext(ctx, "画像キャッシュにヒットしたのだ")
			return res, nil
		}
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		res, err := c.next.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		c.store.Set(key, res, c.ttl)
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	res, ok := val.(*Result)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return res, nil
}

func cacheKey(req imgports.GenerationOptions) string {
	seed := "none"
	if s, ok := seedOf(req); ok {
		seed = strconv.FormatInt(s, 10)
	}
	return cacheKeyPrefix + req.Model + "|" + seed + "|" + req.AspectRatio + "|" + req.NegativePrompt + "|" + req.Prompt
}
