// Package pgstore persists documents in PostgreSQL.
//
// All types share the documents table. Attributes are kept in a jsonb
// column and loading goes through document.Type.Load, so post-load hooks
// run for every document read.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/rise-and-shine/docclip/document"
)

// Store reads and writes documents.
type Store struct {
	idb bun.IDB
}

// New returns a Store over idb, which may be a *bun.DB or a bun.Tx.
func New(idb bun.IDB) *Store {
	return &Store{idb: idb}
}

// Migrate creates the documents table and its type index when missing.
func (s *Store) Migrate(ctx context.Context) error {
	q := s.idb.NewCreateTable().Model((*record)(nil)).IfNotExists()
	if _, err := q.Exec(ctx); err != nil {
		return errx.Wrap(err, errx.WithDetails(errorDetails(err, q)))
	}

	iq := s.idb.NewCreateIndex().
		Model((*record)(nil)).
		Index("documents_type_idx").
		Column("type").
		IfNotExists()
	if _, err := iq.Exec(ctx); err != nil {
		return errx.Wrap(err, errx.WithDetails(errorDetails(err, iq)))
	}
	return nil
}

// Save inserts doc or replaces the attributes of the stored version.
func (s *Store) Save(ctx context.Context, doc *document.Document) error {
	rec := newRecord(doc)

	q := s.idb.NewInsert().
		Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("attributes = EXCLUDED.attributes").
		Set("updated_at = EXCLUDED.updated_at").
		Where("d.type = EXCLUDED.type")

	res, err := q.Exec(ctx)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errorDetails(err, q)))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err)
	}
	if n == 0 {
		return errx.New(
			"document id is taken by another type",
			errx.WithCode(CodeDocumentTypeMismatch),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(errx.D{"id": doc.ID(), "type": doc.Type().Name()}),
		)
	}
	return nil
}

// Find loads the document of typ with id.
func (s *Store) Find(ctx context.Context, typ *document.Type, id string) (*document.Document, error) {
	rec := new(record)

	q := s.idb.NewSelect().
		Model(rec).
		Where("d.id = ?", id).
		Where("d.type = ?", typ.Name())

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(typ, id)
		}
		return nil, errx.Wrap(err, errx.WithDetails(errorDetails(err, q)))
	}

	doc, err := typ.Load(ctx, rec.ID, rec.Attributes)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return doc, nil
}

// Delete removes doc. Deleting a missing document fails with
// CodeDocumentNotFound.
func (s *Store) Delete(ctx context.Context, doc *document.Document) error {
	q := s.idb.NewDelete().
		Model((*record)(nil)).
		Where("id = ?", doc.ID()).
		Where("type = ?", doc.Type().Name())

	res, err := q.Exec(ctx)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errorDetails(err, q)))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err)
	}
	if n == 0 {
		return notFound(doc.Type(), doc.ID())
	}
	return nil
}

func notFound(typ *document.Type, id string) error {
	return errx.New(
		"document not found",
		errx.WithCode(CodeDocumentNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{"type": typ.Name(), "id": id}),
	)
}

// errorDetails collects the query and, for server errors, the PostgreSQL
// diagnostics.
func errorDetails(err error, query fmt.Stringer) errx.D {
	details := errx.D{}
	if q := safeQueryString(query); q != "" {
		details["query"] = q
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return details
	}

	details["pg.code"] = pgErr.Code
	details["pg.message"] = pgErr.Message
	details["pg.detail"] = pgErr.Detail
	details["pg.table"] = pgErr.TableName
	details["pg.constraint"] = pgErr.ConstraintName
	return details
}

// safeQueryString recovers from bun queries that panic in String.
func safeQueryString(query fmt.Stringer) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	if query == nil {
		return ""
	}
	return query.String()
}
