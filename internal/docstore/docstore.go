// Package docstore is a collection/document store over a single libSQL
// table. Documents are JSON objects stored as JSONB and addressed by
// (collection, id).
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// Doc is a raw document as listed from a collection.
type Doc struct {
	ID   string
	Data json.RawMessage
}

// Querier is the set of document operations available both on the store
// and inside a transaction.
type Querier interface {
	Get(ctx context.Context, collection, id string, dest any) error
	List(ctx context.Context, collection string) ([]Doc, error)
	Put(ctx context.Context, collection, id string, doc any) error
	Merge(ctx context.Context, collection, id string, patch any) error
	Delete(ctx context.Context, collection, id string) error
	DeleteCollection(ctx context.Context, collection string) (int64, error)
}

// DB is a Querier that can also run a function atomically.
type DB interface {
	Querier
	RunInTx(ctx context.Context, fn func(tx Querier) error) error
}

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	q  queries
}

func New(db *sql.DB) *Store {
	return &Store{db: db, q: queries{c: db}}
}

func (s *Store) Get(ctx context.Context, collection, id string, dest any) error {
	return s.q.Get(ctx, collection, id, dest)
}

func (s *Store) List(ctx context.Context, collection string) ([]Doc, error) {
	return s.q.List(ctx, collection)
}

func (s *Store) Put(ctx context.Context, collection, id string, doc any) error {
	return s.q.Put(ctx, collection, id, doc)
}

func (s *Store) Merge(ctx context.Context, collection, id string, patch any) error {
	return s.q.Merge(ctx, collection, id, patch)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.q.Delete(ctx, collection, id)
}

func (s *Store) DeleteCollection(ctx context.Context, collection string) (int64, error) {
	return s.q.DeleteCollection(ctx, collection)
}

// RunInTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(tx Querier) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(queries{c: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type queries struct {
	c conn
}

func (q queries) Get(ctx context.Context, collection, id string, dest any) error {
	var data string
	err := q.c.QueryRowContext(ctx,
		`SELECT json(data) FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (q queries) List(ctx context.Context, collection string) ([]Doc, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT id, json(data) FROM documents WHERE collection = ? ORDER BY created_at, id`, collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		docs = append(docs, Doc{ID: id, Data: json.RawMessage(data)})
	}
	return docs, rows.Err()
}

func (q queries) Put(ctx context.Context, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = q.c.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(collection, id) DO UPDATE SET
		   data = excluded.data,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		collection, id, string(data),
	)
	return err
}

// Merge applies patch as a JSON merge patch (RFC 7396), creating the
// document when it does not exist.
func (q queries) Merge(ctx context.Context, collection, id string, patch any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	_, err = q.c.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(collection, id) DO UPDATE SET
		   data = jsonb_patch(documents.data, excluded.data),
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		collection, id, string(data),
	)
	return err
}

func (q queries) Delete(ctx context.Context, collection, id string) error {
	result, err := q.c.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q queries) DeleteCollection(ctx context.Context, collection string) (int64, error) {
	result, err := q.c.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ?`, collection,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DecodeAll unmarshals every document into a T.
func DecodeAll[T any](docs []Doc) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			return nil, fmt.Errorf("decoding document %s: %w", d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// NewID returns a fresh random document id.
func NewID() string { return uuid.NewString() }

// DeriveID returns a stable id for parts. Each part is length-prefixed, so
// two different part lists never hash the same input.
func DeriveID(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%d:%s", len(p), p)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}
