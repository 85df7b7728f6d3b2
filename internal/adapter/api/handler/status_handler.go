package handler

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/domain/entity"
	"snappin/internal/usecase"
	"snappin/pkg/response"
)

type StatusHandler struct {
	statusUseCase *usecase.StatusUseCase
	userUseCase   *usecase.UserUseCase
}

func NewStatusHandler(statusUseCase *usecase.StatusUseCase, userUseCase *usecase.UserUseCase) *StatusHandler {
	return &StatusHandler{
		statusUseCase: statusUseCase,
		userUseCase:   userUseCase,
	}
}

type postStatusRequest struct {
	Text            string `json:"text" validate:"max=700"`
	MediaURL        string `json:"media_url" validate:"omitempty,url"`
	MediaType       string `json:"media_type" validate:"omitempty,oneof=text image video"`
	BackgroundColor string `json:"background_color" validate:"omitempty,hexcolor"`
}

func (h *StatusHandler) PostStatus(c echo.Context) error {
	var req postStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	user, err := h.userUseCase.GetProfile(ctx, currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	status, err := h.statusUseCase.Post(ctx, usecase.PostStatusInput{
		User:            entity.MessageUser{ID: user.ID, Name: user.Name, Avatar: user.Avatar},
		Text:            req.Text,
		MediaURL:        req.MediaURL,
		MediaType:       req.MediaType,
		BackgroundColor: req.BackgroundColor,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, status)
}

func (h *StatusHandler) GetStatuses(c echo.Context) error {
	statuses, err := h.statusUseCase.ListActive(c.Request().Context(), currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, statuses)
}

func (h *StatusHandler) ViewStatus(c echo.Context) error {
	if err := h.statusUseCase.View(c.Request().Context(), c.Param("id"), currentUserID(c)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Status viewed"})
}

func (h *StatusHandler) DeleteStatus(c echo.Context) error {
	if err := h.statusUseCase.Delete(c.Request().Context(), c.Param("id"), currentUserID(c)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Status deleted"})
}
