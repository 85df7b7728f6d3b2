package repository

import (
	"context"
	stderrors "errors"

	"snappin/internal/domain/repository"
	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

// storeError wraps a store failure once at the repository boundary.
// Application errors raised inside transactions pass through untouched.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.Transient("Failed to "+op, err)
}

func decodeList[T any](docs []*docstore.Document, decode func(*docstore.Document) (*T, error)) []*T {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			logger.Warn("Skipping document %s: %v", doc.Path, err)
			continue // Skip bad data instead of failing
		}
		out = append(out, v)
	}
	return out
}

func listen[T any](
	ctx context.Context,
	store docstore.Store,
	q docstore.Query,
	decode func(*docstore.Document) (*T, error),
	onChange func([]*T),
	onError func(error),
) repository.Unsubscribe {
	unsubscribe := store.Listen(ctx, q, func(docs []*docstore.Document) {
		onChange(decodeList(docs, decode))
	}, func(err error) {
		if onError != nil {
			onError(storeError("listen to "+q.Collection, err))
		}
	})
	return repository.Unsubscribe(unsubscribe)
}
