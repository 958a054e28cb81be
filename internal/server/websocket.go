package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket で送るイベントの種類
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ScenePromptsRequest は接続直後にクライアントが送る最初のメッセージなのだ。
// ブラウザは WebSocket にヘッダを付けられないので、キーは本文でも受け付けるのだ。
type ScenePromptsRequest struct {
	APIKey string         `json:"apiKey"`
	Model  string         `json:"model"`
	Scenes []domain.Scene `json:"scenes"`
}

// ScenePromptsEvent はサーバーから送るイベントなのだ。
type ScenePromptsEvent struct {
	Type      string     `json:"type"`
	Completed int        `json:"completed,omitempty"`
	Total     int        `json:"total,omitempty"`
	Scene     int        `json:"scene,omitempty"`
	Failed    string     `json:"failed,omitempty"`
	Prompts   []string   `json:"prompts,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
}

// wsObserver は進捗を1件ずつ WebSocket に流すのだ。batch.Run は同じゴルーチンで通知するので書き込みは直列なのだ。
type wsObserver struct {
	conn    *websocket.Conn
	scenes  []domain.Scene
	lastErr error
}

func (o *wsObserver) OnProgress(_ context.Context, p batch.Progress) {
	ev := ScenePromptsEvent{
		Type:      EventProgress,
		Completed: p.Completed,
		Total:     p.Total,
		Scene:     o.scenes[p.Index].SceneNumber,
	}
	if p.Err != nil {
		ev.Failed = p.Err.Error()
	}
	if err := o.conn.WriteJSON(ev); err != nil && o.lastErr == nil {
		o.lastErr = err
	}
}

// GET /ws/scene-prompts
func (s *Server) scenePromptsWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("WebSocket のアップグレードに失敗したのだ", "error", err)
		return
	}
	defer conn.Close()

	var req ScenePromptsRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.sendError(conn, &domain.ConfigError{Code: domain.CodeBadRequest, Field: "body", Msg: "最初のメッセージを解釈できません: " + err.Error()})
		return
	}
	if len(req.Scenes) == 0 {
		s.sendError(conn, &domain.ConfigError{Code: domain.CodeEmptyInput, Field: "scenes", Msg: "字コンテのシーンがありません"})
		return
	}
	apiKey := c.GetHeader(APIKeyHeader)
	if apiKey == "" {
		apiKey = req.APIKey
	}
	model := req.Model
	if model == "" {
		model = s.scenePromptModel
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go watchClose(conn, cancel)

	obs := &wsObserver{conn: conn, scenes: req.Scenes}
	prompts, err := s.scenePrompts.GenerateAll(ctx, apiKey, model, req.Scenes, batch.Options{Delay: s.batchDelay, Observer: obs})
	if err != nil {
		s.sendError(conn, err)
		return
	}
	if obs.lastErr != nil {
		s.log.Warn("進捗の送信に失敗したのだ", "error", obs.lastErr)
		return
	}
	if err := conn.WriteJSON(ScenePromptsEvent{Type: EventResult, Prompts: prompts}); err != nil {
		s.log.Warn("結果の送信に失敗したのだ", "error", err)
	}
}

// watchClose はクライアントが切断したら処理を打ち切るのだ。
func watchClose(conn *websocket.Conn, cancel context.CancelFunc) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			cancel()
			return
		}
	}
}

func (s *Server) sendError(conn *websocket.Conn, err error) {
	body := errorBody(err, domain.ProviderOpenRouter)
	if werr := conn.WriteJSON(ScenePromptsEvent{Type: EventError, Error: &body}); werr != nil {
		s.log.Warn("エラーの送信に失敗したのだ", "error", errors.Join(err, werr))
	}
}
