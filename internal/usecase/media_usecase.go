package usecase

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/service"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaAudio    = "audio"
	MediaDocument = "document"

	maxMediaBytes = 25 << 20
)

var defaultExtensions = map[string]string{
	MediaImage:    "jpg",
	MediaVideo:    "mp4",
	MediaAudio:    "m4a",
	MediaDocument: "bin",
}

var contentTypeExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"video/mp4":       "mp4",
	"video/quicktime": "mov",
	"audio/mpeg":      "mp3",
	"audio/mp4":       "m4a",
	"application/pdf": "pdf",
}

type MediaUseCase struct {
	objects service.ObjectStore
	now     func() time.Time
}

func NewMediaUseCase(objects service.ObjectStore) *MediaUseCase {
	return &MediaUseCase{
		objects: objects,
		now:     time.Now,
	}
}

type UploadMediaInput struct {
	Parent      entity.Parent
	MediaType   string
	FileName    string // optional; generated when empty
	ContentType string
	Size        int64
	Body        io.Reader
}

type MediaObject struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// MediaObjectPath places a file under {chats|groups}/{id}/media/.
func MediaObjectPath(parent entity.Parent, fileName string) string {
	return path.Join(parent.Collection(), parent.ID, "media", fileName)
}

func (uc *MediaUseCase) objectName(mediaType, fileName, contentType string) string {
	if name := path.Base(strings.ReplaceAll(fileName, "\\", "/")); fileName != "" && name != "." && name != "/" {
		return name
	}

	ext := defaultExtensions[mediaType]
	if known, ok := contentTypeExtensions[contentType]; ok {
		ext = known
	} else if contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = strings.TrimPrefix(exts[0], ".")
		}
	}
	return fmt.Sprintf("%s_%d.%s", mediaType, uc.now().UnixMilli(), ext)
}

func checkContentType(mediaType, contentType string) error {
	if contentType == "" || mediaType == MediaDocument {
		return nil
	}
	if !strings.HasPrefix(contentType, mediaType+"/") {
		return errors.Validation(fmt.Sprintf("Content type %s does not match %s", contentType, mediaType))
	}
	return nil
}

func (uc *MediaUseCase) Upload(ctx context.Context, input UploadMediaInput) (*MediaObject, error) {
	if input.Parent.ID == "" {
		return nil, errors.Validation("Chat or group id is required")
	}
	if _, ok := defaultExtensions[input.MediaType]; !ok {
		return nil, errors.Validation("Unsupported media type: " + input.MediaType)
	}
	if err := checkContentType(input.MediaType, input.ContentType); err != nil {
		return nil, err
	}
	if input.Size > maxMediaBytes {
		return nil, errors.Validation(fmt.Sprintf("File exceeds %d MB", maxMediaBytes>>20))
	}
	if input.Body == nil {
		return nil, errors.Validation("File is required")
	}

	name := uc.objectName(input.MediaType, input.FileName, input.ContentType)
	objectPath := MediaObjectPath(input.Parent, name)

	url, err := uc.objects.Upload(ctx, io.LimitReader(input.Body, maxMediaBytes), objectPath, input.ContentType)
	if err != nil {
		logger.Error("UploadMedia Error: Failed to upload %s: %v", objectPath, err)
		return nil, errors.Transient("Failed to upload media", err)
	}

	return &MediaObject{
		URL:         url,
		Path:        objectPath,
		Name:        name,
		ContentType: input.ContentType,
		Size:        input.Size,
	}, nil
}

func (uc *MediaUseCase) Delete(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.Validation("Media url is required")
	}
	if err := uc.objects.Delete(ctx, url); err != nil {
		if errors.CodeOf(err) != "" {
			return err
		}
		logger.Error("DeleteMedia Error: %v", err)
		return errors.Transient("Failed to delete media", err)
	}
	return nil
}

// UploadURL returns a short-lived signed URL the client can PUT the file to
// directly, together with the object's final location.
func (uc *MediaUseCase) UploadURL(ctx context.Context, parent entity.Parent, mediaType, fileName, contentType string) (string, *MediaObject, error) {
	if parent.ID == "" {
		return "", nil, errors.Validation("Chat or group id is required")
	}
	if _, ok := defaultExtensions[mediaType]; !ok {
		return "", nil, errors.Validation("Unsupported media type: " + mediaType)
	}
	if err := checkContentType(mediaType, contentType); err != nil {
		return "", nil, err
	}

	name := uc.objectName(mediaType, fileName, contentType)
	objectPath := MediaObjectPath(parent, name)
	signed, err := uc.objects.SignedUploadURL(ctx, objectPath, contentType, 15*time.Minute)
	if err != nil {
		logger.Error("UploadURL Error: %v", err)
		return "", nil, errors.Transient("Failed to create upload url", err)
	}
	return signed, &MediaObject{Path: objectPath, Name: name, ContentType: contentType}, nil
}
