package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/http/response"
	"github.com/yungbote/commonground-backend/internal/platform/ctxutil"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/services"
)

type AlignmentHandler struct {
	log       *logger.Logger
	alignment services.AlignmentService
}

func NewAlignmentHandler(log *logger.Logger, alignment services.AlignmentService) *AlignmentHandler {
	return &AlignmentHandler{log: log.With("handler", "AlignmentHandler"), alignment: alignment}
}

// GET /api/alignment/:otherUserId?version=
func (h *AlignmentHandler) Compare(c *gin.Context) {
	other, err := uuid.Parse(strings.TrimSpace(c.Param("otherUserId")))
	if err != nil || other == uuid.Nil {
		badRequest(c, "invalid_request", errors.New("otherUserId must be a user id"))
		return
	}
	version := strings.TrimSpace(c.Query("version"))
	if version == "" {
		badRequest(c, "invalid_request", errors.New("version query parameter is required"))
		return
	}
	res, err := h.alignment.Compare(c.Request.Context(), ctxutil.UserID(c.Request.Context()), other, version)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
