package usecase

import (
	"context"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

const defaultStatusTTL = 24 * time.Hour

// ConversationView is one row of a user's chat list.
type ConversationView struct {
	*entity.Conversation
	OtherUser *entity.User `json:"other_user,omitempty"`
	Unread    int          `json:"unread"`
}

type GroupView struct {
	*entity.Group
	Unread int `json:"unread"`
}

type StatusView struct {
	*entity.StatusUpdate
	Own    bool `json:"own"`
	Viewed bool `json:"viewed"`
}

// SyncUseCase turns store listeners into live, fully materialized views.
// Every emission carries the whole current list; an emission equal to the
// previous one is dropped. A listener that cannot be registered, or breaks
// later, reports CANNOT_LOAD on onError.
type SyncUseCase struct {
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
	groupRepo   repository.GroupRepository
	userRepo    repository.UserRepository
	statusRepo  repository.StatusRepository
	statusTTL   time.Duration
	now         func() time.Time
}

func NewSyncUseCase(
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	statusRepo repository.StatusRepository,
	statusTTL time.Duration,
) *SyncUseCase {
	if statusTTL <= 0 {
		statusTTL = defaultStatusTTL
	}
	return &SyncUseCase{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		statusRepo:  statusRepo,
		statusTTL:   statusTTL,
		now:         time.Now,
	}
}

// distinct drops emissions equal to the previous one.
func distinct[T any](onChange func(T)) func(T) {
	var (
		mu     sync.Mutex
		last   T
		primed bool
	)
	return func(v T) {
		mu.Lock()
		if primed && reflect.DeepEqual(last, v) {
			mu.Unlock()
			return
		}
		last, primed = v, true
		mu.Unlock()
		onChange(v)
	}
}

func cannotLoad(resource string, onError func(error)) func(error) {
	return func(err error) {
		logger.Error("Subscribe Error: %s listener failed: %v", resource, err)
		if onError != nil {
			onError(errors.CannotLoad(resource, err))
		}
	}
}

func idempotent(unsubscribe repository.Unsubscribe) repository.Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(unsubscribe)
	}
}

// SubscribeMessages streams the message log of parent, newest first.
func (uc *SyncUseCase) SubscribeMessages(ctx context.Context, parent entity.Parent, onChange func([]*entity.Message), onError func(error)) repository.Unsubscribe {
	emit := distinct(onChange)
	unsubscribe := uc.messageRepo.Listen(ctx, parent, func(messages []*entity.Message) {
		visible := make([]*entity.Message, len(messages))
		for i, m := range messages {
			visible[i] = m.Visible()
		}
		emit(visible)
	}, cannotLoad("messages", onError))
	return idempotent(unsubscribe)
}

// SubscribeUserConversations streams the chats userID takes part in, most
// recent first, each joined with the other participant's profile.
func (uc *SyncUseCase) SubscribeUserConversations(ctx context.Context, userID string, onChange func([]*ConversationView), onError func(error)) repository.Unsubscribe {
	emit := distinct(onChange)
	unsubscribe := uc.chatRepo.ListenByUserID(ctx, userID, func(chats []*entity.Conversation) {
		emit(uc.conversationViews(ctx, userID, chats))
	}, cannotLoad("conversations", onError))
	return idempotent(unsubscribe)
}

// conversationViews resolves the other participant of every chat with one
// point read each.
func (uc *SyncUseCase) conversationViews(ctx context.Context, userID string, chats []*entity.Conversation) []*ConversationView {
	views := make([]*ConversationView, len(chats))

	var g errgroup.Group
	g.SetLimit(8)
	for i, chat := range chats {
		views[i] = &ConversationView{Conversation: chat, Unread: chat.UnreadFor(userID)}
		otherID := chat.OtherParticipant(userID)
		if otherID == "" {
			continue
		}
		view := views[i]
		g.Go(func() error {
			other, err := uc.userRepo.GetByID(ctx, otherID)
			if err != nil {
				logger.Warn("Subscribe: could not resolve user %s for chat %s: %v", otherID, chat.ID, err)
				return nil
			}
			view.OtherUser = other
			return nil
		})
	}
	g.Wait()

	return views
}

// SubscribeUserGroups streams the groups userID belongs to.
func (uc *SyncUseCase) SubscribeUserGroups(ctx context.Context, userID string, onChange func([]*GroupView), onError func(error)) repository.Unsubscribe {
	emit := distinct(onChange)
	unsubscribe := uc.groupRepo.ListenByUserID(ctx, userID, func(groups []*entity.Group) {
		views := make([]*GroupView, len(groups))
		for i, g := range groups {
			views[i] = &GroupView{Group: g, Unread: g.UnreadFor(userID)}
		}
		emit(views)
	}, cannotLoad("groups", onError))
	return idempotent(unsubscribe)
}

// SubscribeAllUsers streams the whole user directory except excludeUserID.
// It reads every user on every change; use UserUseCase.Directory beyond a
// small user base.
func (uc *SyncUseCase) SubscribeAllUsers(ctx context.Context, excludeUserID string, onChange func([]*entity.User), onError func(error)) repository.Unsubscribe {
	emit := distinct(onChange)
	unsubscribe := uc.userRepo.ListenAll(ctx, func(users []*entity.User) {
		others := make([]*entity.User, 0, len(users))
		for _, u := range users {
			if u.ID != excludeUserID {
				others = append(others, u)
			}
		}
		emit(others)
	}, cannotLoad("users", onError))
	return idempotent(unsubscribe)
}

// SubscribeStatuses streams status updates younger than the configured TTL,
// marked with whether viewerID owns or has seen each one.
func (uc *SyncUseCase) SubscribeStatuses(ctx context.Context, viewerID string, onChange func([]*StatusView), onError func(error)) repository.Unsubscribe {
	emit := distinct(onChange)
	unsubscribe := uc.statusRepo.ListenSince(ctx, uc.now().Add(-uc.statusTTL), func(statuses []*entity.StatusUpdate) {
		emit(statusViews(statuses, viewerID, uc.now().Add(-uc.statusTTL)))
	}, cannotLoad("statuses", onError))
	return idempotent(unsubscribe)
}

func statusViews(statuses []*entity.StatusUpdate, viewerID string, cutoff time.Time) []*StatusView {
	views := make([]*StatusView, 0, len(statuses))
	for _, s := range statuses {
		if s.CreatedAt.Before(cutoff) {
			continue
		}
		views = append(views, &StatusView{
			StatusUpdate: s,
			Own:          s.UserID == viewerID,
			Viewed:       s.ViewedByUser(viewerID),
		})
	}
	return views
}
