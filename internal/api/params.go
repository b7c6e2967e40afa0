package api

import (
	"strconv"

	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// pathID parses a positive numeric path parameter
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewBadRequestError("INVALID_ID", name+" must be a positive integer")
	}
	return uint(id), nil
}

// currentUser returns the authenticated user id
func currentUser(c *gin.Context) (uint, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperrors.NewUnauthorizedError(apperrors.CodeUnauthenticated, "Authentication required")
	}
	return id, nil
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewBadRequestError(apperrors.CodeValidation, name+" must be a non-negative integer")
	}
	return v, nil
}

// pageParams reads skip and limit; limit may not exceed max
func pageParams(c *gin.Context, defLimit, max int) (int, int, error) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit", defLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > max {
		return 0, 0, apperrors.NewBadRequestError(apperrors.CodeValidation, "limit must be between 1 and "+strconv.Itoa(max))
	}
	return skip, limit, nil
}

// bind decodes the JSON body into req, reporting binding failures as 400
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(apperrors.ValidationError(err))
		return false
	}
	return true
}
