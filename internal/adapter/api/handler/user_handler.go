package handler

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/usecase"
	"snappin/pkg/response"
	"snappin/pkg/utils"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userUseCase.GetProfile(c.Request().Context(), currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) GetUserByID(c echo.Context) error {
	user, err := h.userUseCase.GetProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

// ListUsers pages through the directory, leaving out the caller.
func (h *UserHandler) ListUsers(c echo.Context) error {
	page := utils.GetPaginationParams(c)

	users, next, err := h.userUseCase.Directory(c.Request().Context(), currentUserID(c), page.Limit, page.Cursor)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Cursor(c, users, next)
}
