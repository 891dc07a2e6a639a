package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devloops/devloops/middleware"
)

// getUserID extracts the authenticated user ID set by the auth middleware.
func getUserID(ctx *gin.Context) (uint, bool) {
	v, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// parsePagination normalizes page/page_size query values.
func parsePagination(pageStr, sizeStr string) (int, int) {
	page, pageSize := 1, 20
	if v := strings.TrimSpace(pageStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(sizeStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}

// parseID parses a positive integer path parameter.
func parseID(raw string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}
