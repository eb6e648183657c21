package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/http/response"
	"github.com/yungbote/commonground-backend/internal/platform/ctxutil"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/services"
)

type GroupHandler struct {
	log    *logger.Logger
	groups services.GroupService
}

func NewGroupHandler(log *logger.Logger, groups services.GroupService) *GroupHandler {
	return &GroupHandler{log: log.With("handler", "GroupHandler"), groups: groups}
}

type createGroupRequest struct {
	Nickname string `json:"nickname"`
	Version  string `json:"version"`
}

type joinGroupRequest struct {
	GroupCode string `json:"groupCode"`
	Alias     string `json:"alias"`
}

type memberView struct {
	UserID   uuid.UUID `json:"userId"`
	Role     string    `json:"role"`
	Alias    string    `json:"alias"`
	JoinedAt time.Time `json:"joinedAt"`
}

func groupIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("groupId")), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid_request", errors.New("groupId must be a positive integer"))
		return 0, false
	}
	return id, true
}

// POST /api/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_request", errors.New("malformed group body"))
			return
		}
	}
	created, err := h.groups.Create(c.Request.Context(), ctxutil.UserID(c.Request.Context()), req.Nickname, req.Version)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondCreated(c, created)
}

// POST /api/groups/:groupId/join
func (h *GroupHandler) Join(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	var req joinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", errors.New("malformed join body"))
		return
	}
	if strings.TrimSpace(req.GroupCode) == "" {
		badRequest(c, "invalid_group_code", errors.New("groupCode is required"))
		return
	}
	if err := h.groups.Join(c.Request.Context(), groupID, ctxutil.UserID(c.Request.Context()), req.GroupCode, req.Alias); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondMessage(c, "ok")
}

// GET /api/groups/:groupId/members
func (h *GroupHandler) Members(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	members, err := h.groups.Members(c.Request.Context(), groupID, ctxutil.UserID(c.Request.Context()))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, memberView{UserID: m.UserID, Role: m.Role, Alias: m.Alias, JoinedAt: m.JoinedAt})
	}
	response.RespondOK(c, out)
}

// GET /api/groups/:groupId/alignment
func (h *GroupHandler) Alignment(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	results, err := h.groups.Alignment(c.Request.Context(), groupID, ctxutil.UserID(c.Request.Context()))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, results)
}
