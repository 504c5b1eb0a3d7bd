package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/allocation"
	"github.com/zaqqye/defense_backend_v1/internal/evaluation"
	"github.com/zaqqye/defense_backend_v1/internal/outcomes"
	"github.com/zaqqye/defense_backend_v1/internal/registration"
	"github.com/zaqqye/defense_backend_v1/internal/settings"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/topic"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
	"github.com/zaqqye/defense_backend_v1/internal/workflow"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{allocation.ErrAlreadyRegistered, http.StatusConflict, "ALREADY_REGISTERED"},
	{allocation.ErrCapacityExceeded, http.StatusConflict, "CAPACITY_EXCEEDED"},
	{allocation.ErrNotRegistered, http.StatusConflict, "NOT_REGISTERED"},
	{allocation.ErrTopicUnavailable, http.StatusConflict, "TOPIC_UNAVAILABLE"},
	{allocation.ErrContention, http.StatusConflict, "CONTENTION"},
	{allocation.ErrSessionMismatch, http.StatusUnprocessableEntity, "SESSION_MISMATCH"},
	{registration.ErrDuplicateRegistration, http.StatusConflict, "DUPLICATE_REGISTRATION"},
	{registration.ErrProjectViaAllocation, http.StatusUnprocessableEntity, "PROJECT_VIA_ALLOCATION"},
	{workflow.ErrTrackNotWritable, http.StatusUnprocessableEntity, "TRACK_NOT_WRITABLE"},
	{workflow.ErrIllegalTransition, http.StatusUnprocessableEntity, "ILLEGAL_TRANSITION"},
	{workflow.ErrUnknownTrack, http.StatusNotFound, "UNKNOWN_TRACK"},
	{topic.ErrTopicNotDraft, http.StatusConflict, "TOPIC_NOT_DRAFT"},
	{topic.ErrTopicInUse, http.StatusConflict, "TOPIC_IN_USE"},
	{evaluation.ErrNotAssigned, http.StatusForbidden, "NOT_ASSIGNED"},
	{evaluation.ErrInvalidEvaluator, http.StatusForbidden, "NOT_AN_EVALUATOR"},
	{outcomes.ErrInvalidReportType, http.StatusBadRequest, "INVALID_REPORT_TYPE"},
	{outcomes.ErrInvalidSource, http.StatusBadRequest, "INVALID_SOURCE"},
	{settings.ErrUnknownSetting, http.StatusNotFound, "UNKNOWN_SETTING"},
	{store.ErrConflict, http.StatusConflict, "CONFLICT"},
	{store.ErrStaleWrite, http.StatusConflict, "CONCURRENT_UPDATE"},
}

// respondError writes the JSON error body for err. Unknown errors are logged
// and hidden behind a 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "code": "VALIDATION_FAILED", "fields": vErr.Map()})
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": m.err.Error(), "code": m.code})
			return
		}
	}
	_ = c.Error(err)
	log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError), "code": "INTERNAL"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "BAD_REQUEST"})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "FORBIDDEN"})
}
