package services

import (
	"errors"

	"github.com/yungbote/commonground-backend/internal/survey"
)

var (
	// ErrSurveyNotFound is returned when a survey version does not resolve.
	ErrSurveyNotFound = survey.ErrNotFound
	// ErrEmptyBatch is returned for a submission without answers.
	ErrEmptyBatch = errors.New("no answers submitted")
	// ErrTooManyAttempts is returned when a caller exceeds the join attempt budget.
	ErrTooManyAttempts = errors.New("too many join attempts")
	// ErrNotGroupMember hides a group from callers outside it.
	ErrNotGroupMember = errors.New("not a member of this group")
	// ErrGroupProvisioning is returned when a group or its owner membership could not be written.
	ErrGroupProvisioning = errors.New("group provisioning failed")
)
