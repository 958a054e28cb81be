package imagegen

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	imgports "github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/go-http-kit/httpkit"
)

const pollinationsBaseURL = "https://image.pollinations.ai/prompt/"

// Pollinations は API キー不要の画像生成なのだ。URL がそのまま画像になるのだ。
type Pollinations struct {
	// client が nil なら URL だけを返し、取得はしないのだ。
	client  httpkit.Requester
	baseURL string
}

// NewPollinations は Pollinations を作るのだ。client を渡すと画像の取得まで行うのだ。
func NewPollinations(client httpkit.Requester) *Pollinations {
	return &Pollinations{client: client, baseURL: pollinationsBaseURL}
}

// PollinationsURL はプロンプトとシードから画像 URL を組み立てるのだ。
// シードを指定すると同じプロンプトで同じ画像になり、キャラクターの一貫性が上がるのだ。
func PollinationsURL(prompt string, seed *int64) string {
	return buildPollinationsURL(pollinationsBaseURL, prompt, seed)
}

func buildPollinationsURL(base, prompt string, seed *int64) string {
	encoded := strings.ReplaceAll(url.QueryEscape(prompt), "+", "%20")
	u := base + encoded + "?width=1280&height=720&nologo=true&enhance=true"
	if seed != nil {
		u += "&seed=" + strconv.FormatInt(*seed, 10)
	}
	return u
}

// Generate は画像 URL を返し、クライアントがあれば画像データも取得するのだ。
// 取得に失敗しても URL は有効なので、警告を出して URL だけを返すのだ。
func (p *Pollinations) Generate(ctx context.Context, req imgports.GenerationOptions) (*Result, error) {
	imageURL := buildPollinationsURL(p.baseURL, req.Prompt, req.Seed)
	res := &Result{URL: imageURL}
	if p.client == nil {
		return res, nil
	}

	data, err := p.client.FetchBytes(ctx, imageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.WarnContext(ctx, "Pollinations の画像取得に失敗したので URL だけを使うのだ", "error", err)
		return res, nil
	}

	res.Image = &imgports.ImageResponse{
		Data:     data,
		MimeType: http.DetectContentType(data),
		UsedSeed: imgports.DereferenceSeed(req.Seed),
	}
	return res, nil
}
