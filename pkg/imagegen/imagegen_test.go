package imagegen

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/patrickmn/go-cache"
	imgports "github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/go-http-kit/httpkit"
	"google.golang.org/genai"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

// newLocalHTTPClient は httptest サーバーに届くようにネットワーク検証を外したクライアントなのだ。
func newLocalHTTPClient() *httpkit.Client {
	return httpkit.New(5*time.Second, httpkit.WithSkipNetworkValidation(true), httpkit.WithMaxRetries(0))
}

func TestPollinationsURL(t *testing.T) {
	seed := int64(42)
	tests := []struct {
		name   string
		prompt string
		seed   *int64
		want   string
	}{
		{
			name:   "シード無しなのだ",
			prompt: "a cat, night",
			want:   "https://image.pollinations.ai/prompt/a%20cat%2C%20night?width=1280&height=720&nologo=true&enhance=true",
		},
		{
			name:   "シード付きなのだ",
			prompt: "sky",
			seed:   &seed,
			want:   "https://image.pollinations.ai/prompt/sky?width=1280&height=720&nologo=true&enhance=true&seed=42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PollinationsURL(tt.prompt, tt.seed); got != tt.want {
				t.Errorf("期待値 %s, 実際の値 %s", tt.want, got)
			}
		})
	}

	t.Run("HTTPクライアントが無ければURLだけを返すのだ", func(t *testing.T) {
		res, err := NewPollinations(nil).Generate(context.Background(), imgports.GenerationOptions{Prompt: "sky"})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if res.URL == "" || res.HasData() {
			t.Errorf("URL だけの結果を期待したのだ: %+v", res)
		}
	})

	t.Run("HTTPクライアントがあれば画像データも取得するのだ", func(t *testing.T) {
		var gotPath, gotSeed string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			gotSeed = r.URL.Query().Get("seed")
			w.Write(pngHeader)
		}))
		defer srv.Close()

		p := NewPollinations(newLocalHTTPClient())
		p.baseURL = srv.URL + "/prompt/"
		seed := int64(9)
		res, err := p.Generate(context.Background(), imgports.GenerationOptions{Prompt: "night city", Seed: &seed})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if !res.HasData() || !bytes.Equal(res.Image.Data, pngHeader) {
			t.Fatalf("取得した画像データを期待したのだ: %+v", res)
		}
		if res.Image.MimeType != "image/png" || res.Image.UsedSeed != 9 {
			t.Errorf("MIME タイプとシードが違うのだ: %s %d", res.Image.MimeType, res.Image.UsedSeed)
		}
		if gotPath != "/prompt/night%20city" || gotSeed != "9" {
			t.Errorf("リクエスト先が違うのだ: %s seed=%s", gotPath, gotSeed)
		}
		if !strings.HasPrefix(res.URL, srv.URL) {
			t.Errorf("URL も残すのだ: %s", res.URL)
		}
	})

	t.Run("取得に失敗してもURLは返すのだ", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		p := NewPollinations(newLocalHTTPClient())
		p.baseURL = srv.URL + "/prompt/"
		res, err := p.Generate(context.Background(), imgports.GenerationOptions{Prompt: "sky"})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if res.URL == "" || res.HasData() {
			t.Errorf("URL だけの結果を期待したのだ: %+v", res)
		}
	})
}

func TestProviderFor(t *testing.T) {
	ctx := context.Background()

	t.Run("pollinationsはキー不要なのだ", func(t *testing.T) {
		gen, err := ProviderFor(ctx, "Pollinations", "", "", Deps{})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		cached, ok := gen.(*Cached)
		if !ok {
			t.Fatalf("キャッシュ付きを期待したのだ: %T", gen)
		}
		if _, ok := cached.next.(*Pollinations); !ok {
			t.Errorf("Pollinations を期待したのだ: %T", cached.next)
		}
	})

	t.Run("dalleはキーが必須なのだ", func(t *testing.T) {
		_, err := ProviderFor(ctx, "dalle", "", "", Deps{})
		if domain.CodeOf(err) != domain.CodeCredentialMissing {
			t.Errorf("CredentialMissing を期待したのだ: %v", err)
		}
	})

	t.Run("不明なプロバイダなのだ", func(t *testing.T) {
		_, err := ProviderFor(ctx, "midjourney", "key", "", Deps{})
		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "provider" {
			t.Errorf("provider の ConfigError を期待したのだ: %v", err)
		}
	})
}

type countingGenerator struct {
	calls atomic.Int32
	delay time.Duration
	fail  map[string]bool
}

func (g *countingGenerator) Generate(_ context.Context, req imgports.GenerationOptions) (*Result, error) {
	g.calls.Add(1)
	time.Sleep(g.delay)
	if g.fail[req.Prompt] {
		return nil, errors.New("生成失敗")
	}
	return &Result{URL: "https://example.com/" + req.Prompt}, nil
}

func TestCached(t *testing.T) {
	t.Run("同じプロンプトとシードは1回だけ生成するのだ", func(t *testing.T) {
		next := &countingGenerator{delay: 10 * time.Millisecond}
		c := NewCached(next, nil, time.Minute)
		seed := int64(7)
		req := imgports.GenerationOptions{Prompt: "city", Seed: &seed}

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := c.Generate(context.Background(), req); err != nil {
					t.Errorf("予期しないエラーなのだ: %v", err)
				}
			}()
		}
		wg.Wait()
		if _, err := c.Generate(context.Background(), req); err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}

		if got := next.calls.Load(); got != 1 {
			t.Errorf("生成は1回のはずなのだ: %d", got)
		}
	})

	t.Run("シードが違えば別の画像なのだ", func(t *testing.T) {
		next := &countingGenerator{}
		c := NewCached(next, nil, time.Minute)
		a, b := int64(1), int64(2)
		c.Generate(context.Background(), imgports.GenerationOptions{Prompt: "city", Seed: &a})
		c.Generate(context.Background(), imgports.GenerationOptions{Prompt: "city", Seed: &b})
		if got := next.calls.Load(); got != 2 {
			t.Errorf("生成は2回のはずなのだ: %d", got)
		}
	})

	t.Run("失敗はキャッシュしないのだ", func(t *testing.T) {
		next := &countingGenerator{fail: map[string]bool{"bad": true}}
		c := NewCached(next, nil, time.Minute)
		req := imgports.GenerationOptions{Prompt: "bad"}
		c.Generate(context.Background(), req)
		c.Generate(context.Background(), req)
		if got := next.calls.Load(); got != 2 {
			t.Errorf("失敗は毎回生成し直すのだ: %d", got)
		}
	})
}

func TestCachedSharedStore(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	store.Set("fileapi_uri:https://example.com/ref.png", "files/abc", time.Minute)

	next := &countingGenerator{}
	c := NewCached(next, store, time.Minute)
	req := imgports.GenerationOptions{Prompt: "https://example.com/ref.png"}
	if _, err := c.Generate(context.Background(), req); err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	if next.calls.Load() != 1 {
		t.Errorf("File API のキーとは混ざらないはずなのだ: %d", next.calls.Load())
	}
	if v, _ := store.Get("fileapi_uri:https://example.com/ref.png"); v != "files/abc" {
		t.Errorf("共有しているキャッシュの中身を壊してはいけないのだ: %v", v)
	}
}

// fakePanelGenerator は gemini-image-kit の ImageGenerator の代わりなのだ。
type fakePanelGenerator struct {
	req  imgports.ImagePanelRequest
	resp *imgports.ImageResponse
	err  error
}

func (f *fakePanelGenerator) GenerateMangaPanel(_ context.Context, req imgports.ImagePanelRequest) (*imgports.ImageResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakePanelGenerator) GenerateMangaPage(context.Context, imgports.ImagePageRequest) (*imgports.ImageResponse, error) {
	return nil, errors.New("使わないのだ")
}

func (f *fakePanelGenerator) IsVertexAI() bool { return false }

func TestGeminiImage(t *testing.T) {
	t.Run("モデルと比率を補って1パネルとして生成するのだ", func(t *testing.T) {
		fake := &fakePanelGenerator{resp: &imgports.ImageResponse{Data: pngHeader, MimeType: "image/png", UsedSeed: 3}}
		g := newGeminiImage(fake, DefaultGeminiImageModel)
		seed := int64(3)

		res, err := g.Generate(context.Background(), imgports.GenerationOptions{Prompt: "sunset", NegativePrompt: "text", Seed: &seed})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if !res.HasData() || res.Image.UsedSeed != 3 {
			t.Errorf("画像データを期待したのだ: %+v", res)
		}
		got := fake.req.GenerationOptions
		if got.Model != DefaultGeminiImageModel || got.AspectRatio != AspectRatio || got.NegativePrompt != "text" {
			t.Errorf("リクエストが補われていないのだ: %+v", got)
		}
		if fake.req.Image != (imgports.ImageURI{}) {
			t.Errorf("参照画像は付けないのだ: %+v", fake.req.Image)
		}
	})

	t.Run("APIエラーはProviderErrorに変換するのだ", func(t *testing.T) {
		fake := &fakePanelGenerator{err: genai.APIError{Code: 429, Message: "quota"}}
		g := newGeminiImage(fake, DefaultGeminiImageModel)

		_, err := g.Generate(context.Background(), imgports.GenerationOptions{Prompt: "sunset"})
		var pe *domain.ProviderError
		if !errors.As(err, &pe) || pe.Status != 429 {
			t.Fatalf("429 の ProviderError を期待したのだ: %v", err)
		}
		if domain.CodeOf(err) != domain.CodeRateLimited {
			t.Errorf("RateLimited を期待したのだ: %s", domain.CodeOf(err))
		}
	})

	t.Run("画像が無い応答はエラーなのだ", func(t *testing.T) {
		g := newGeminiImage(&fakePanelGenerator{resp: &imgports.ImageResponse{}}, DefaultGeminiImageModel)
		if _, err := g.Generate(context.Background(), imgports.GenerationOptions{Prompt: "sunset"}); err == nil {
			t.Error("エラーを期待したのだ")
		}
	})
}

func TestGenerateAll(t *testing.T) {
	next := &countingGenerator{fail: map[string]bool{"b": true}}
	reqs := []imgports.GenerationOptions{{Prompt: "a"}, {Prompt: "b"}, {Prompt: ""}, {Prompt: "d"}}

	got, err := GenerateAll(context.Background(), next, reqs, batch.Options{Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	if len(got) != 4 || got[0] == nil || got[1] != nil || got[2] != nil || got[3] == nil {
		t.Errorf("失敗したシーンだけ空になるはずなのだ: %+v", got)
	}
	if next.calls.Load() != 3 {
		t.Errorf("プロンプトが空のシーンは生成しないのだ: %d", next.calls.Load())
	}
}
