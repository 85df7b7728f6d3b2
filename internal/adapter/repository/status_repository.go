package repository

import (
	"context"
	stderrors "errors"
	"time"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/errors"
)

const statusCollection = "statuses"

type statusRepository struct {
	store docstore.Store
}

func NewStatusRepository(store docstore.Store) repository.StatusRepository {
	return &statusRepository{
		store: store,
	}
}

func (r *statusRepository) Create(ctx context.Context, status *entity.StatusUpdate) (string, error) {
	id, err := r.store.Add(ctx, statusCollection, encodeNewStatus(status))
	if err != nil {
		return "", storeError("create status", err)
	}
	status.ID = id
	return id, nil
}

func (r *statusRepository) GetByID(ctx context.Context, id string) (*entity.StatusUpdate, error) {
	doc, err := r.store.Get(ctx, docstore.Join(statusCollection, id))
	if err != nil {
		if stderrors.Is(err, docstore.ErrNotFound) {
			return nil, errors.NotFound("Status", err)
		}
		return nil, storeError("get status", err)
	}
	return decodeStatus(doc)
}

func (r *statusRepository) AddViewer(ctx context.Context, id, userID string) error {
	err := r.store.Update(ctx, docstore.Join(statusCollection, id), []docstore.Update{
		docstore.Set("viewedBy", docstore.ArrayUnion(userID)),
	})
	if stderrors.Is(err, docstore.ErrNotFound) {
		return errors.NotFound("Status", err)
	}
	return storeError("mark status viewed", err)
}

func (r *statusRepository) Delete(ctx context.Context, id string) error {
	return storeError("delete status", r.store.Delete(ctx, docstore.Join(statusCollection, id)))
}

func since(t time.Time) docstore.Query {
	return docstore.Collection(statusCollection).
		Where("createdAt", docstore.OpGreater, t).
		OrderBy("createdAt", docstore.Desc)
}

func (r *statusRepository) ListSince(ctx context.Context, t time.Time) ([]*entity.StatusUpdate, error) {
	docs, err := r.store.Query(ctx, since(t))
	if err != nil {
		return nil, storeError("fetch statuses", err)
	}
	return decodeList(docs, decodeStatus), nil
}

func (r *statusRepository) ListenSince(ctx context.Context, t time.Time, onChange func([]*entity.StatusUpdate), onError func(error)) repository.Unsubscribe {
	return listen(ctx, r.store, since(t), decodeStatus, onChange, onError)
}
