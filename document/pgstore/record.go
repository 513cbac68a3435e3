package pgstore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/rise-and-shine/docclip/document"
)

// record is the row of one document. Attributes are stored as jsonb, so
// times come back as RFC 3339 strings and numbers as float64; declared
// fields are coerced again by document.Type.Load.
type record struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         string         `bun:"id,pk"`
	Type       string         `bun:"type,notnull"`
	Attributes map[string]any `bun:"attributes,type:jsonb,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

var _ bun.BeforeAppendModelHook = (*record)(nil)

func (r *record) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

func newRecord(doc *document.Document) *record {
	attrs := doc.Attributes()
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &record{
		ID:         doc.ID(),
		Type:       doc.Type().Name(),
		Attributes: attrs,
	}
}
