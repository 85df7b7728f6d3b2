package handler

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/response"
)

type GroupHandler struct {
	groupUseCase *usecase.GroupUseCase
}

func NewGroupHandler(groupUseCase *usecase.GroupUseCase) *GroupHandler {
	return &GroupHandler{
		groupUseCase: groupUseCase,
	}
}

type createGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Members     []string `json:"members" validate:"required,min=1,dive,required"`
	Avatar      string   `json:"avatar" validate:"omitempty,url"`
	Description string   `json:"description" validate:"omitempty,max=500"`
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := currentUserID(c)
	id, err := h.groupUseCase.Create(c.Request().Context(), usecase.CreateGroupInput{
		Name:        req.Name,
		CreatedBy:   userID,
		Members:     req.Members,
		Avatar:      req.Avatar,
		Description: req.Description,
	})
	if err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.GetGroup(c.Request().Context(), userID, id)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, group)
}

func (h *GroupHandler) GetUserGroups(c echo.Context) error {
	userID := currentUserID(c)

	groups, err := h.groupUseCase.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	views := make([]*usecase.GroupView, len(groups))
	for i, g := range groups {
		views[i] = &usecase.GroupView{Group: g, Unread: g.UnreadFor(userID)}
	}
	return response.Success(c, views)
}

func (h *GroupHandler) GetGroupByID(c echo.Context) error {
	group, err := h.groupUseCase.GetGroup(c.Request().Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

// UpdateGroup applies a partial edit. Only name, avatar and description
// may be sent; anything else is rejected.
func (h *GroupHandler) UpdateGroup(c echo.Context) error {
	// body only, so the :id path param does not leak into the field set
	var fields map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &fields); err != nil {
		return response.Error(c, err)
	}

	update, err := usecase.GroupUpdateFromFields(fields)
	if err != nil {
		return response.Error(c, err)
	}
	if update.IsEmpty() {
		return response.Error(c, errors.Validation("Nothing to update"))
	}

	ctx := c.Request().Context()
	groupID := c.Param("id")
	if err := h.groupUseCase.EnsureAdmin(ctx, groupID, currentUserID(c)); err != nil {
		return response.Error(c, err)
	}
	if err := h.groupUseCase.Update(ctx, groupID, update); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.GetGroup(ctx, currentUserID(c), groupID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) AddMember(c echo.Context) error {
	var req addMemberRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	groupID := c.Param("id")
	if err := h.groupUseCase.EnsureAdmin(ctx, groupID, currentUserID(c)); err != nil {
		return response.Error(c, err)
	}
	if err := h.groupUseCase.AddMember(ctx, groupID, req.UserID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Member added"})
}
