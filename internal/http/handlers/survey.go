package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/commonground-backend/internal/http/response"
	"github.com/yungbote/commonground-backend/internal/modules/commonground"
	"github.com/yungbote/commonground-backend/internal/platform/ctxutil"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/services"
)

type SurveyHandler struct {
	log     *logger.Logger
	surveys services.SurveyService
}

func NewSurveyHandler(log *logger.Logger, surveys services.SurveyService) *SurveyHandler {
	return &SurveyHandler{log: log.With("handler", "SurveyHandler"), surveys: surveys}
}

type submitSurveyRequest struct {
	Version string                `json:"version"`
	Answers []commonground.Answer `json:"answers"`
}

// POST /api/surveys/submissions
func (h *SurveyHandler) Submit(c *gin.Context) {
	var req submitSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", errors.New("malformed submission body"))
		return
	}
	if strings.TrimSpace(req.Version) == "" {
		badRequest(c, "invalid_request", errors.New("version is required"))
		return
	}
	if _, err := h.surveys.Submit(c.Request.Context(), ctxutil.UserID(c.Request.Context()), req.Version, req.Answers); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondMessage(c, "ok")
}

// GET /api/topic-scores?version=
func (h *SurveyHandler) TopicScores(c *gin.Context) {
	version := strings.TrimSpace(c.Query("version"))
	if version == "" {
		badRequest(c, "invalid_request", errors.New("version query parameter is required"))
		return
	}
	rows, err := h.surveys.TopicScores(c.Request.Context(), ctxutil.UserID(c.Request.Context()), version)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, rows)
}

// GET /api/surveys
func (h *SurveyHandler) List(c *gin.Context) {
	items, err := h.surveys.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, items)
}

// GET /api/surveys/:version
func (h *SurveyHandler) Get(c *gin.Context) {
	def, err := h.surveys.Get(c.Request.Context(), c.Param("version"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, def)
}
