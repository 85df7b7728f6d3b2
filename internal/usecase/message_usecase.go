package usecase

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

const (
	PreviewPhoto      = "📷 Photo"
	PreviewVideo      = "🎥 Video"
	PreviewAudio      = "🎵 Audio"
	PreviewAttachment = "📎 Attachment"

	defaultMarkAllReadConcurrency = 8
)

type MessageUseCase struct {
	messageRepo repository.MessageRepository
	threadRepo  repository.ThreadRepository
	concurrency int
	now         func() time.Time
}

func NewMessageUseCase(messageRepo repository.MessageRepository, threadRepo repository.ThreadRepository, markAllReadConcurrency int) *MessageUseCase {
	if markAllReadConcurrency <= 0 {
		markAllReadConcurrency = defaultMarkAllReadConcurrency
	}
	return &MessageUseCase{
		messageRepo: messageRepo,
		threadRepo:  threadRepo,
		concurrency: markAllReadConcurrency,
		now:         time.Now,
	}
}

type SendMessageInput struct {
	ID       string // client-generated; filled in when empty
	Text     string
	User     entity.MessageUser
	Image    string
	Video    string
	Audio    string
	Document *entity.Attachment
	ReplyTo  *entity.ReplyTo
}

func (in SendMessageInput) hasContent() bool {
	return strings.TrimSpace(in.Text) != "" || in.Image != "" || in.Video != "" || in.Audio != "" || in.Document != nil
}

// Preview is the text cached on the parent for list views. Text that is not
// blank wins, then media in the order image, video, audio, document.
func Preview(input SendMessageInput) string {
	switch {
	case strings.TrimSpace(input.Text) != "":
		return input.Text
	case input.Image != "":
		return PreviewPhoto
	case input.Video != "":
		return PreviewVideo
	case input.Audio != "":
		return PreviewAudio
	case input.Document != nil && input.Document.Name != "":
		return "📎 " + input.Document.Name
	}
	return PreviewAttachment
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Append writes a message and then refreshes the parent's preview and the
// unread counters of every other participant.
//
// Failures before the message is stored return MESSAGE_NOT_SENT and leave
// nothing behind. Failures afterwards return PREVIEW_UPDATE_FAILED together
// with the stored message: it stays visible, only the preview is stale.
func (uc *MessageUseCase) Append(ctx context.Context, parent entity.Parent, input SendMessageInput) (*entity.Message, error) {
	if parent.ID == "" {
		return nil, errors.Validation("Chat or group id is required")
	}
	if input.User.ID == "" {
		return nil, errors.Validation("Sender is required")
	}
	if !input.hasContent() {
		return nil, errors.Validation("Message needs text or an attachment")
	}

	now := uc.now()
	message := &entity.Message{
		ID:        input.ID,
		Text:      input.Text,
		CreatedAt: now, // replaced by the server timestamp on the next read
		User:      input.User,
		Image:     optional(input.Image),
		Video:     optional(input.Video),
		Audio:     optional(input.Audio),
		Document:  input.Document,
		ReplyTo:   input.ReplyTo,
		ReadBy:    []entity.ReadReceipt{{UserID: input.User.ID, Timestamp: now}},
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.User.Name == "" {
		message.User.Name = "Unknown"
	}

	if err := uc.messageRepo.Create(ctx, parent, message); err != nil {
		logger.Error("SendMessage Error: Failed to store message in %s: %v", parent.Path(), err)
		return nil, errors.NotSent(err)
	}

	participants, err := uc.threadRepo.Participants(ctx, parent)
	if err != nil {
		logger.Error("SendMessage Error: Failed to read participants of %s: %v", parent.Path(), err)
		return message, errors.PreviewStale(err)
	}

	recipients := make([]string, 0, len(participants))
	for _, p := range participants {
		if p != input.User.ID {
			recipients = append(recipients, p)
		}
	}

	if err := uc.threadRepo.RecordSend(ctx, parent, Preview(input), recipients); err != nil {
		logger.Error("SendMessage Error: Failed to update preview of %s: %v", parent.Path(), err)
		return message, errors.PreviewStale(err)
	}

	return message, nil
}

// SoftDelete tombstones a message. Only its author may do so; a missing
// message is logged and ignored.
func (uc *MessageUseCase) SoftDelete(ctx context.Context, parent entity.Parent, docID, actingUserID string) error {
	err := uc.messageRepo.SoftDelete(ctx, parent, docID, actingUserID)
	if errors.Is(err, errors.CodeNotFound) {
		logger.Warn("DeleteMessage: message %s not found in %s", docID, parent.Path())
		return nil
	}
	if err != nil {
		logger.Error("DeleteMessage Error: %v", err)
		return err
	}
	return nil
}

func (uc *MessageUseCase) Edit(ctx context.Context, parent entity.Parent, docID, actingUserID, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.Validation("Message text cannot be empty")
	}
	if err := uc.messageRepo.Edit(ctx, parent, docID, actingUserID, text); err != nil {
		logger.Error("EditMessage Error: %v", err)
		return err
	}
	return nil
}

// MarkRead records that userID has read the message. Marking the same
// message twice changes nothing; a missing message is logged and ignored.
func (uc *MessageUseCase) MarkRead(ctx context.Context, parent entity.Parent, docID, userID string) error {
	_, err := uc.messageRepo.MarkRead(ctx, parent, docID, userID, uc.now())
	if errors.Is(err, errors.CodeNotFound) {
		logger.Warn("MarkRead: message %s not found in %s", docID, parent.Path())
		return nil
	}
	if err != nil {
		logger.Error("MarkRead Error: Failed to mark %s in %s for %s: %v", docID, parent.Path(), userID, err)
		return err
	}
	return nil
}

// MarkAllRead marks every unread message from other users as read and then
// resets the user's counter to zero, even when some marks failed, so any
// drift in the counter is cleared.
func (uc *MessageUseCase) MarkAllRead(ctx context.Context, parent entity.Parent, userID string) error {
	messages, listErr := uc.messageRepo.ListNotFrom(ctx, parent, userID)
	if listErr != nil {
		logger.Error("MarkAllRead Error: Failed to list messages in %s: %v", parent.Path(), listErr)
	}

	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for _, m := range messages {
		if m.IsReadBy(userID) {
			continue
		}
		docID := m.DocID
		g.Go(func() error {
			_, err := uc.messageRepo.MarkRead(ctx, parent, docID, userID, uc.now())
			return err
		})
	}
	markErr := g.Wait()
	if markErr != nil {
		logger.Error("MarkAllRead Error: Failed to mark messages in %s: %v", parent.Path(), markErr)
	}

	resetErr := uc.threadRepo.ResetUnread(ctx, parent, userID)
	if resetErr != nil {
		logger.Error("MarkAllRead Error: Failed to reset unread count in %s: %v", parent.Path(), resetErr)
	}

	return stderrors.Join(listErr, markErr, resetErr)
}

// ListMessages returns up to limit messages, newest first, as they should
// be displayed.
func (uc *MessageUseCase) ListMessages(ctx context.Context, parent entity.Parent, limit int) ([]*entity.Message, error) {
	messages, err := uc.messageRepo.List(ctx, parent, limit)
	if err != nil {
		logger.Error("ListMessages Error: %v", err)
		return nil, err
	}
	for i, m := range messages {
		messages[i] = m.Visible()
	}
	return messages, nil
}
