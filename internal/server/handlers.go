package server

import (
	"errors"
	"net/http"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/publisher"
	"github.com/shouni/go-lyric-storyboard/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const codeNotFound domain.ErrorCode = "not_found"

type exportRequest struct {
	Scenes []domain.Scene `json:"scenes"`
}

// POST /api/storyboard
func (s *Server) generateStoryboard(c *gin.Context) {
	var cfg domain.GenerationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, "body", "リクエストの JSON を解釈できません: "+err.Error())
		return
	}
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		writeError(c, err, domain.ProviderGemini)
		return
	}
	cfg.APIKey = c.GetHeader(APIKeyHeader)

	res, err := s.service.GenerateStoryboard(c.Request.Context(), cfg)
	if err != nil {
		writeError(c, err, domain.ProviderGemini)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/video-prompts
func (s *Server) generateVideoPrompts(c *gin.Context) {
	var req domain.VideoPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "リクエストの JSON を解釈できません: "+err.Error())
		return
	}

	res, err := s.service.GenerateVideoPrompts(c.Request.Context(), c.GetHeader(APIKeyHeader), req)
	if err != nil {
		writeError(c, err, domain.ProviderOpenRouter)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/export/tsv
func (s *Server) exportTSV(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "リクエストの JSON を解釈できません: "+err.Error())
		return
	}
	if len(req.Scenes) == 0 {
		badRequest(c, "scenes", "書き出すシーンがありません")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+publisher.DefaultTSVName+`"`)
	c.Data(http.StatusOK, "text/tab-separated-values; charset=utf-8", []byte(publisher.FormatTSV(req.Scenes)))
}

// POST /api/projects
func (s *Server) createProject(c *gin.Context) {
	var p store.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "body", "リクエストの JSON を解釈できません: "+err.Error())
		return
	}
	if err := s.store.Save(c.Request.Context(), &p); err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /api/projects
func (s *Server) listProjects(c *gin.Context) {
	ps, err := s.store.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "")
		return
	}
	if ps == nil {
		ps = []store.Project{}
	}
	c.JSON(http.StatusOK, ps)
}

// GET /api/projects/:id
func (s *Server) getProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	p, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /api/projects/:id
func (s *Server) deleteProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func projectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "id", "プロジェクト ID の形式が不正です")
		return uuid.Nil, false
	}
	return id, true
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorBody{
			Error:       err.Error(),
			Remediation: "プロジェクト ID を確認してください。",
			Code:        codeNotFound,
			RequestID:   c.GetString(requestIDKey),
		})
		return
	}
	writeError(c, err, "")
}

// normalizeConfig は列挙子を大文字に揃え、未知の値を弾くのだ。
func normalizeConfig(cfg domain.GenerationConfig) (domain.GenerationConfig, error) {
	style, err := domain.ParseVisualStyle(string(cfg.VisualStyle))
	if err != nil {
		return cfg, err
	}
	if style == "" {
		style = domain.StyleCinematic
	}
	angle, err := domain.ParseCameraAngle(string(cfg.CameraAngle))
	if err != nil {
		return cfg, err
	}
	movement, err := domain.ParseCameraMovement(string(cfg.CameraMovement))
	if err != nil {
		return cfg, err
	}
	technique, err := domain.ParseSpecialTechnique(string(cfg.SpecialTechnique))
	if err != nil {
		return cfg, err
	}
	cfg.VisualStyle, cfg.CameraAngle, cfg.CameraMovement, cfg.SpecialTechnique = style, angle, movement, technique
	return cfg, nil
}
