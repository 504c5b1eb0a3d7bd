package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultLimit = 20

// Paginate slices items by the limit/page/all query parameters and returns the
// page plus the meta block list endpoints send next to it.
func Paginate[T any](c *gin.Context, items []T) ([]T, gin.H) {
	all := strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1"
	limit := defaultLimit
	page := 1
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	meta := gin.H{"total": len(items), "all": all}
	if all {
		return items, meta
	}
	meta["limit"] = limit
	meta["page"] = page

	offset := (page - 1) * limit
	if offset >= len(items) {
		return items[:0], meta
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], meta
}
