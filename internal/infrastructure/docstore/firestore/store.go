// Package firestore implements docstore.Store on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"strings"
	"sync"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/logger"
)

type Store struct {
	client *fs.Client
}

func New(client *fs.Client) *Store {
	return &Store{client: client}
}

// NewFromProject opens a Firestore client for projectID. The emulator is
// picked up from FIRESTORE_EMULATOR_HOST by the client library.
func NewFromProject(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := fs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return New(client), nil
}

func (s *Store) Client() *fs.Client {
	return s.client
}

func (s *Store) Get(ctx context.Context, docPath string) (*docstore.Document, error) {
	snap, err := s.client.Doc(docPath).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return toDocument(snap), nil
}

func (s *Store) Create(ctx context.Context, docPath string, data map[string]any) error {
	_, err := s.client.Doc(docPath).Create(ctx, encodeMap(data))
	return translate(err)
}

func (s *Store) Set(ctx context.Context, docPath string, data map[string]any, merge bool) error {
	var err error
	if merge {
		_, err = s.client.Doc(docPath).Set(ctx, encodeMap(data), fs.MergeAll)
	} else {
		_, err = s.client.Doc(docPath).Set(ctx, encodeMap(data))
	}
	return translate(err)
}

func (s *Store) Update(ctx context.Context, docPath string, updates []docstore.Update) error {
	_, err := s.client.Doc(docPath).Update(ctx, encodeUpdates(updates))
	return translate(err)
}

func (s *Store) Delete(ctx context.Context, docPath string) error {
	_, err := s.client.Doc(docPath).Delete(ctx)
	return translate(err)
}

func (s *Store) Add(ctx context.Context, collectionPath string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collectionPath).Add(ctx, encodeMap(data))
	if err != nil {
		return "", translate(err)
	}
	return ref.ID, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	iter := s.build(q).Documents(ctx)
	defer iter.Stop()

	var docs []*docstore.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translate(err)
		}
		docs = append(docs, toDocument(snap))
	}
	return docs, nil
}

// Listen streams query snapshots until the returned function is called or
// ctx ends. Snapshot errors other than cancellation reach onError once and
// end the stream.
func (s *Store) Listen(ctx context.Context, q docstore.Query, onChange func([]*docstore.Document), onError func(error)) docstore.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	iter := s.build(q).Snapshots(ctx)

	go func() {
		for {
			qs, err := iter.Next()
			if err != nil {
				if err == iterator.Done || status.Code(err) == codes.Canceled || ctx.Err() != nil {
					return
				}
				logger.Warn("firestore listener on %s stopped: %v", q.Collection, err)
				if onError != nil {
					onError(translate(err))
				}
				return
			}

			snaps, err := qs.Documents.GetAll()
			if err != nil {
				if onError != nil {
					onError(translate(err))
				}
				return
			}
			docs := make([]*docstore.Document, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, toDocument(snap))
			}
			if onChange != nil {
				onChange(docs)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			iter.Stop()
		})
	}
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *fs.Transaction) error {
		return fn(ctx, &tx{client: s.client, t: t})
	})
	return translate(err)
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) build(q docstore.Query) fs.Query {
	query := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		query = query.WherePath(fs.FieldPath(f.Path), f.Op, encodeValue(f.Value))
	}
	for _, o := range q.Orders {
		dir := fs.Asc
		if o.Dir == docstore.Desc {
			dir = fs.Desc
		}
		query = query.OrderByPath(fs.FieldPath(o.Path), dir)
	}
	if len(q.StartAfter) > 0 {
		values := make([]interface{}, len(q.StartAfter))
		for i, v := range q.StartAfter {
			values[i] = encodeValue(v)
		}
		query = query.StartAfter(values...)
	}
	if q.LimitN > 0 {
		query = query.Limit(q.LimitN)
	}
	return query
}

type tx struct {
	client *fs.Client
	t      *fs.Transaction
	wrote  bool
}

func (t *tx) Get(docPath string) (*docstore.Document, error) {
	if t.wrote {
		return nil, docstore.ErrReadAfterWrite
	}
	snap, err := t.t.Get(t.client.Doc(docPath))
	if err != nil {
		return nil, translate(err)
	}
	return toDocument(snap), nil
}

func (t *tx) Set(docPath string, data map[string]any, merge bool) error {
	t.wrote = true
	if merge {
		return t.t.Set(t.client.Doc(docPath), encodeMap(data), fs.MergeAll)
	}
	return t.t.Set(t.client.Doc(docPath), encodeMap(data))
}

func (t *tx) Update(docPath string, updates []docstore.Update) error {
	t.wrote = true
	return t.t.Update(t.client.Doc(docPath), encodeUpdates(updates))
}

func toDocument(snap *fs.DocumentSnapshot) *docstore.Document {
	return &docstore.Document{
		ID:         snap.Ref.ID,
		Path:       relativePath(snap.Ref.Path),
		Data:       docstore.Normalize(snap.Data()).(map[string]any),
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

// relativePath strips the "projects/p/databases/d/documents/" prefix.
func relativePath(full string) string {
	const marker = "/documents/"
	if i := strings.Index(full, marker); i >= 0 {
		return full[i+len(marker):]
	}
	return full
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return errors.Join(docstore.ErrNotFound, err)
	case codes.AlreadyExists:
		return errors.Join(docstore.ErrAlreadyExists, err)
	case codes.Aborted:
		return errors.Join(docstore.ErrTxConflict, err)
	}
	return err
}
