package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/http/response"
	"github.com/yungbote/commonground-backend/internal/platform/apierr"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/services"
)

var (
	errGroupNotFound  = errors.New("group not found")
	errSurveyNotFound = errors.New("survey not found")
	errInternal       = errors.New("internal error")
)

// toAPIError maps service failures onto HTTP statuses. Sentinels are checked
// before codes so that distinct outcomes never collapse into one status.
func toAPIError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, services.ErrGroupProvisioning):
		return apierr.Internal("group_provisioning_failed", services.ErrGroupProvisioning)
	case errors.Is(err, services.ErrTooManyAttempts):
		return apierr.New(http.StatusTooManyRequests, "too_many_attempts", services.ErrTooManyAttempts)
	case errors.Is(err, domainagg.ErrGroupNotFound), errors.Is(err, services.ErrNotGroupMember):
		return apierr.NotFound("group_not_found", errGroupNotFound)
	case errors.Is(err, domainagg.ErrInvalidGroupCode):
		return apierr.BadRequest("invalid_group_code", domainagg.ErrInvalidGroupCode)
	case errors.Is(err, domainagg.ErrAlreadyMember):
		return apierr.Conflict("already_member", domainagg.ErrAlreadyMember)
	case errors.Is(err, services.ErrEmptyBatch):
		return apierr.BadRequest("empty_batch", services.ErrEmptyBatch)
	}

	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		if errors.Is(err, services.ErrSurveyNotFound) {
			return apierr.BadRequest("unknown_survey_version", errSurveyNotFound)
		}
		return apierr.BadRequest("invalid_request", messageOf(err))
	case domainagg.CodeNotFound:
		if errors.Is(err, services.ErrSurveyNotFound) {
			return apierr.NotFound("survey_not_found", errSurveyNotFound)
		}
		return apierr.NotFound("not_found", messageOf(err))
	case domainagg.CodeAlreadyExists, domainagg.CodeConflict:
		return apierr.Conflict("conflict", messageOf(err))
	case domainagg.CodeRetryable:
		return apierr.New(http.StatusServiceUnavailable, "retryable", errors.New("temporarily unavailable, retry"))
	}
	return apierr.Internal("internal", errInternal)
}

// messageOf exposes the aggregate message without the operation prefix.
func messageOf(err error) error {
	var agg *domainagg.Error
	if errors.As(err, &agg) && agg.Message != "" {
		return errors.New(agg.Message)
	}
	return err
}

func respondServiceError(c *gin.Context, log *logger.Logger, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	response.RespondAPIError(c, ae)
}

func badRequest(c *gin.Context, code string, err error) {
	response.RespondError(c, http.StatusBadRequest, code, err)
}
