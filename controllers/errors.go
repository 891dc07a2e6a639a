package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/services"
	"github.com/devloops/devloops/utils"
)

// isUniqueViolation reports whether err came from a unique index conflict.
// TranslateError covers both dialects, the string checks are a fallback for
// drivers that bypass translation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

// respondServiceError maps the service error taxonomy onto HTTP
// responses. Anything outside the taxonomy is a storage failure: it is
// logged with its detail and surfaces only as the generic message.
func respondServiceError(ctx *gin.Context, err error, internalCode int, internalMsg string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40404, "not found")
	case errors.Is(err, services.ErrInvalidVote):
		utils.Error(ctx, http.StatusBadRequest, 40090, "direction must be up or down")
	case errors.Is(err, services.ErrDuplicateName):
		utils.Error(ctx, http.StatusConflict, 40920, "a loop with this name or slug already exists")
	case errors.Is(err, services.ErrAlreadyMember):
		utils.Error(ctx, http.StatusConflict, 40921, "you are already a member of this loop")
	case errors.Is(err, services.ErrAlreadyExists):
		utils.Error(ctx, http.StatusConflict, 40922, "already exists")
	case errors.Is(err, services.ErrLastAdmin):
		utils.Error(ctx, http.StatusConflict, 40923, "cannot leave: you are the last admin of this loop")
	case errors.Is(err, services.ErrNotMember):
		utils.Error(ctx, http.StatusForbidden, 40330, "you are not a member of this loop")
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(ctx, http.StatusForbidden, 40331, "you are not allowed to do this")
	default:
		if utils.Sugar != nil {
			utils.Sugar.Errorw(internalMsg, "err", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, internalCode, internalMsg)
	}
}
