package usecase

import (
	"context"
	"strings"
	"time"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

const defaultStatusBackground = "#128C7E"

type StatusUseCase struct {
	statusRepo repository.StatusRepository
	ttl        time.Duration
	now        func() time.Time
}

func NewStatusUseCase(statusRepo repository.StatusRepository, ttl time.Duration) *StatusUseCase {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &StatusUseCase{
		statusRepo: statusRepo,
		ttl:        ttl,
		now:        time.Now,
	}
}

type PostStatusInput struct {
	User            entity.MessageUser
	Text            string
	MediaURL        string
	MediaType       string
	BackgroundColor string
}

func (uc *StatusUseCase) Post(ctx context.Context, input PostStatusInput) (*entity.StatusUpdate, error) {
	if input.User.ID == "" {
		return nil, errors.Validation("Author is required")
	}
	switch input.MediaType {
	case "", entity.StatusMediaText:
		if strings.TrimSpace(input.Text) == "" {
			return nil, errors.Validation("Text status cannot be empty")
		}
		input.MediaType = entity.StatusMediaText
	case entity.StatusMediaImage, entity.StatusMediaVideo:
		if input.MediaURL == "" {
			return nil, errors.Validation("Media status needs a media url")
		}
	default:
		return nil, errors.Validation("Unsupported status media type: " + input.MediaType)
	}
	if input.BackgroundColor == "" {
		input.BackgroundColor = defaultStatusBackground
	}

	status := &entity.StatusUpdate{
		UserID:          input.User.ID,
		UserName:        input.User.Name,
		UserAvatar:      input.User.Avatar,
		Text:            input.Text,
		MediaURL:        input.MediaURL,
		MediaType:       input.MediaType,
		BackgroundColor: input.BackgroundColor,
		CreatedAt:       uc.now(),
		ViewedBy:        []string{},
	}

	id, err := uc.statusRepo.Create(ctx, status)
	if err != nil {
		logger.Error("PostStatus Error: Failed to store status for %s: %v", input.User.ID, err)
		return nil, err
	}
	status.ID = id

	return status, nil
}

// View records that viewerID has seen the status. Authors viewing their own
// status are not recorded.
func (uc *StatusUseCase) View(ctx context.Context, statusID, viewerID string) error {
	status, err := uc.statusRepo.GetByID(ctx, statusID)
	if err != nil {
		return err
	}
	if status.UserID == viewerID {
		return nil
	}
	if err := uc.statusRepo.AddViewer(ctx, statusID, viewerID); err != nil {
		logger.Error("ViewStatus Error: %v", err)
		return err
	}
	return nil
}

func (uc *StatusUseCase) Delete(ctx context.Context, statusID, actingUserID string) error {
	status, err := uc.statusRepo.GetByID(ctx, statusID)
	if err != nil {
		return err
	}
	if status.UserID != actingUserID {
		return errors.Forbidden("Only the author can delete a status", nil)
	}
	if err := uc.statusRepo.Delete(ctx, statusID); err != nil {
		logger.Error("DeleteStatus Error: %v", err)
		return err
	}
	return nil
}

// ListActive returns statuses younger than the TTL, newest first.
func (uc *StatusUseCase) ListActive(ctx context.Context, viewerID string) ([]*StatusView, error) {
	cutoff := uc.now().Add(-uc.ttl)
	statuses, err := uc.statusRepo.ListSince(ctx, cutoff)
	if err != nil {
		logger.Error("ListStatuses Error: %v", err)
		return nil, err
	}
	return statusViews(statuses, viewerID, cutoff), nil
}
