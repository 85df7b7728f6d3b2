package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams represents cursor pagination parameters
type PaginationParams struct {
	Limit  int
	Cursor string
}

// GetPaginationParams extracts pagination parameters from request
func GetPaginationParams(c echo.Context) PaginationParams {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	return PaginationParams{
		Limit:  limit,
		Cursor: c.QueryParam("cursor"),
	}
}
