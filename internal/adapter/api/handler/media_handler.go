package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"snappin/internal/domain/entity"
	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/response"
)

type MediaHandler struct {
	mediaUseCase *usecase.MediaUseCase
	access       *accessChecker
}

func NewMediaHandler(mediaUseCase *usecase.MediaUseCase, access *accessChecker) *MediaHandler {
	return &MediaHandler{
		mediaUseCase: mediaUseCase,
		access:       access,
	}
}

type mediaTargetRequest struct {
	ChatID  string `json:"chat_id" form:"chat_id" validate:"required"`
	IsGroup bool   `json:"is_group" form:"is_group"`
}

func (r mediaTargetRequest) parent() entity.Parent {
	if r.IsGroup {
		return entity.GroupParent(r.ChatID)
	}
	return entity.ChatParent(r.ChatID)
}

type uploadURLRequest struct {
	mediaTargetRequest
	Type        string `json:"type" validate:"required,oneof=image video audio document"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type" validate:"required"`
}

type deleteMediaRequest struct {
	mediaTargetRequest
	URL string `json:"url" validate:"required"`
}

// UploadMedia stores a multipart "file" under the chat or group named by
// the chat_id and is_group form fields.
func (h *MediaHandler) UploadMedia(c echo.Context) error {
	target := mediaTargetRequest{ChatID: c.FormValue("chat_id")}
	target.IsGroup, _ = strconv.ParseBool(c.FormValue("is_group"))
	if err := c.Validate(&target); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	parent := target.parent()
	if err := h.access.check(ctx, currentUserID(c), parent); err != nil {
		return response.Error(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.Validation("File is required"))
	}
	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to open file", err))
	}
	defer src.Close()

	mediaType := c.FormValue("type")
	if mediaType == "" {
		mediaType = usecase.MediaDocument
	}

	object, err := h.mediaUseCase.Upload(ctx, usecase.UploadMediaInput{
		Parent:      parent,
		MediaType:   mediaType,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        src,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, object)
}

// CreateUploadURL hands out a signed URL so large files go straight to the
// object store.
func (h *MediaHandler) CreateUploadURL(c echo.Context) error {
	var req uploadURLRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	parent := req.parent()
	if err := h.access.check(ctx, currentUserID(c), parent); err != nil {
		return response.Error(c, err)
	}

	signed, object, err := h.mediaUseCase.UploadURL(ctx, parent, req.Type, req.FileName, req.ContentType)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, map[string]interface{}{
		"upload_url": signed,
		"object":     object,
	})
}

func (h *MediaHandler) DeleteMedia(c echo.Context) error {
	var req deleteMediaRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	parent := req.parent()
	if err := h.access.check(ctx, currentUserID(c), parent); err != nil {
		return response.Error(c, err)
	}

	decoded, err := url.PathUnescape(req.URL)
	if err != nil || !strings.Contains(decoded, "/"+usecase.MediaObjectPath(parent, "")+"/") {
		return response.Error(c, errors.Forbidden("File does not belong to this chat", nil))
	}

	if err := h.mediaUseCase.Delete(ctx, req.URL); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "File deleted"})
}
