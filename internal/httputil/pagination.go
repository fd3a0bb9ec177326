package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ParsePagination safely parses and validates offset and limit query parameters.
// It uses default values of 0 for offset and 50 for limit.
// The limit cannot exceed 100.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	// Parse offset query parameter (default: 0)
	offsetStr := c.DefaultQuery("offset", "0")
	offset, err = strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	// Parse limit query parameter (default: 50, max: 100)
	limitStr := c.DefaultQuery("limit", "50")
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		return 0, 0, fmt.Errorf("invalid limit parameter: must be between 1 and 100")
	}

	return offset, limit, nil
}

// ParseAfterCursor parses the optional "after" query parameter used by
// cursor-based message listings. A missing parameter means "from the start".
func ParseAfterCursor(c *gin.Context) (*uuid.UUID, error) {
	afterStr := c.Query("after")
	if afterStr == "" {
		return nil, nil
	}

	after, err := uuid.Parse(afterStr)
	if err != nil {
		return nil, fmt.Errorf("invalid after parameter: must be a UUID")
	}
	return &after, nil
}

// ParseOptionalLimit parses the optional "limit" query parameter for cursor
// listings. Zero (the default) means no limit is applied by the server.
func ParseOptionalLimit(c *gin.Context) (int, error) {
	limitStr := c.DefaultQuery("limit", "0")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit parameter: must be a non-negative integer")
	}
	return limit, nil
}
