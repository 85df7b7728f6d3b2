package repository

import (
	"context"
	stderrors "errors"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/errors"
	"snappin/pkg/utils"
)

const usersCollection = "users"

type userRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) repository.UserRepository {
	return &userRepository{
		store: store,
	}
}

func userPath(id string) string {
	return docstore.Join(usersCollection, id)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.store.Get(ctx, userPath(id))
	if err != nil {
		if stderrors.Is(err, docstore.ErrNotFound) {
			return nil, errors.NotFound("User", err)
		}
		return nil, storeError("get user", err)
	}
	return decodeUser(doc)
}

func (r *userRepository) EnsureOnline(ctx context.Context, user *entity.User) (bool, error) {
	path := userPath(user.ID)

	var created bool
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		created = false
		_, err := tx.Get(path)
		if err != nil && !stderrors.Is(err, docstore.ErrNotFound) {
			return err
		}

		if stderrors.Is(err, docstore.ErrNotFound) {
			created = true
			return tx.Set(path, map[string]any{
				"id":        user.ID,
				"name":      user.Name,
				"email":     user.Email,
				"avatar":    user.Avatar,
				"status":    entity.UserStatusOnline,
				"lastSeen":  docstore.ServerTimestamp,
				"createdAt": docstore.ServerTimestamp,
				"updatedAt": docstore.ServerTimestamp,
			}, false)
		}

		updateData := map[string]any{
			"status":    entity.UserStatusOnline,
			"lastSeen":  docstore.ServerTimestamp,
			"updatedAt": docstore.ServerTimestamp,
		}
		// Only include non-empty fields
		if user.Name != "" {
			updateData["name"] = user.Name
		}
		if user.Email != "" {
			updateData["email"] = user.Email
		}
		if user.Avatar != "" {
			updateData["avatar"] = user.Avatar
		}
		return tx.Set(path, updateData, true)
	})
	if err != nil {
		return false, storeError("upsert user", err)
	}
	return created, nil
}

func (r *userRepository) SetPresence(ctx context.Context, id, status string) error {
	err := r.store.Update(ctx, userPath(id), []docstore.Update{
		docstore.Set("status", status),
		docstore.Set("lastSeen", docstore.ServerTimestamp),
		docstore.Set("updatedAt", docstore.ServerTimestamp),
	})
	if stderrors.Is(err, docstore.ErrNotFound) {
		return errors.NotFound("User", err)
	}
	return storeError("update user status", err)
}

func (r *userRepository) List(ctx context.Context, limit int, cursor string) ([]*entity.User, string, error) {
	q := docstore.Collection(usersCollection).
		OrderBy("name", docstore.Asc).
		OrderBy("id", docstore.Asc).
		Limit(limit)

	after, err := utils.DecodeCursor(cursor)
	if err != nil {
		return nil, "", errors.Validation(err.Error())
	}
	if len(after) == 2 {
		q = q.After(after[0], after[1])
	}

	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, "", storeError("list users", err)
	}

	users := decodeList(docs, decodeUser)
	next := ""
	if len(docs) == limit && len(users) > 0 {
		last := users[len(users)-1]
		next = utils.EncodeCursor(last.Name, last.ID)
	}
	return users, next, nil
}

func (r *userRepository) ListenAll(ctx context.Context, onChange func([]*entity.User), onError func(error)) repository.Unsubscribe {
	q := docstore.Collection(usersCollection).OrderBy("name", docstore.Asc)
	return listen(ctx, r.store, q, decodeUser, onChange, onError)
}
