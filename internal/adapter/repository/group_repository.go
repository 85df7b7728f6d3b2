package repository

import (
	"context"
	stderrors "errors"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/errors"
)

const groupsCollection = "groups"

type groupRepository struct {
	store docstore.Store
}

func NewGroupRepository(store docstore.Store) repository.GroupRepository {
	return &groupRepository{
		store: store,
	}
}

func (r *groupRepository) Create(ctx context.Context, group *entity.Group) (string, error) {
	id, err := r.store.Add(ctx, groupsCollection, encodeNewGroup(group))
	if err != nil {
		return "", storeError("create group", err)
	}
	group.ID = id
	return id, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	doc, err := r.store.Get(ctx, entity.GroupParent(id).Path())
	if err != nil {
		if stderrors.Is(err, docstore.ErrNotFound) {
			return nil, errors.NotFound("Group", err)
		}
		return nil, storeError("get group", err)
	}
	return decodeGroup(doc)
}

// AddMember unions userID into members and seeds its unread counter only
// when the member is new, so re-adding never resets a live count.
func (r *groupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	path := entity.GroupParent(groupID).Path()
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(path)
		if err != nil {
			if stderrors.Is(err, docstore.ErrNotFound) {
				return errors.NotFound("Group", err)
			}
			return err
		}
		group, err := decodeGroup(doc)
		if err != nil {
			return err
		}

		updates := []docstore.Update{
			docstore.Set("members", docstore.ArrayUnion(userID)),
			docstore.Set("updatedAt", docstore.ServerTimestamp),
		}
		if _, ok := group.UnreadCount[userID]; !ok {
			updates = append(updates, docstore.Update{Path: docstore.Field("unreadCount", userID), Value: 0})
		}
		return tx.Update(path, updates)
	})
	return storeError("add group member", err)
}

func (r *groupRepository) Update(ctx context.Context, groupID string, update entity.GroupUpdate) error {
	updates := []docstore.Update{docstore.Set("updatedAt", docstore.ServerTimestamp)}
	if update.Name != nil {
		updates = append(updates, docstore.Set("name", *update.Name))
	}
	if update.Avatar != nil {
		updates = append(updates, docstore.Set("avatar", *update.Avatar))
	}
	if update.Description != nil {
		updates = append(updates, docstore.Set("description", *update.Description))
	}

	err := r.store.Update(ctx, entity.GroupParent(groupID).Path(), updates)
	if stderrors.Is(err, docstore.ErrNotFound) {
		return errors.NotFound("Group", err)
	}
	return storeError("update group", err)
}

func (r *groupRepository) byMember(userID string) docstore.Query {
	return docstore.Collection(groupsCollection).
		Where("members", docstore.OpArrayContains, userID).
		OrderBy("lastMessageTime", docstore.Desc)
}

func (r *groupRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Group, error) {
	docs, err := r.store.Query(ctx, r.byMember(userID))
	if err != nil {
		return nil, storeError("fetch groups", err)
	}
	return decodeList(docs, decodeGroup), nil
}

func (r *groupRepository) ListenByUserID(ctx context.Context, userID string, onChange func([]*entity.Group), onError func(error)) repository.Unsubscribe {
	return listen(ctx, r.store, r.byMember(userID), decodeGroup, onChange, onError)
}
