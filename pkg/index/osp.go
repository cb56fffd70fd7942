package index

import (
	"context"

	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

type ospIndex struct{ db *sqlstore.Store }

func (o *ospIndex) index(ctx context.Context, t types.Triple) error {
	refs := t.Object.RefArray
	if t.Object.Tag == types.TagRef {
		refs = []types.EntityId{t.Object.Ref}
	}
	for _, ref := range refs {
		_, err := o.db.DB.ExecContext(ctx,
			`INSERT OR IGNORE INTO idx_osp (object_ref, predicate, subject) VALUES (?, ?, ?)`,
			normalizeRef(ref), string(t.Predicate), string(t.Subject))
		if err != nil {
			return wrapWrite("osp index", err)
		}
	}
	return nil
}

func (o *ospIndex) unindex(ctx context.Context, t types.Triple) error {
	refs := t.Object.RefArray
	if t.Object.Tag == types.TagRef {
		refs = []types.EntityId{t.Object.Ref}
	}
	for _, ref := range refs {
		_, err := o.db.DB.ExecContext(ctx,
			`DELETE FROM idx_osp WHERE object_ref = ? AND predicate = ? AND subject = ?`,
			normalizeRef(ref), string(t.Predicate), string(t.Subject))
		if err != nil {
			return wrapWrite("osp unindex", err)
		}
	}
	return nil
}

// Referrers returns every subject with any edge pointing at object.
func (o *ospIndex) Referrers(ctx context.Context, object types.EntityId) ([]string, error) {
	return o.scan(ctx, `SELECT DISTINCT subject FROM idx_osp WHERE object_ref = ? ORDER BY subject`, normalizeRef(object))
}

// ReferrersVia returns every subject with predicate pointing at object.
func (o *ospIndex) ReferrersVia(ctx context.Context, object types.EntityId, predicate string) ([]string, error) {
	return o.scan(ctx,
		`SELECT subject FROM idx_osp WHERE object_ref = ? AND predicate = ? ORDER BY subject`,
		normalizeRef(object), predicate)
}

func (o *ospIndex) scan(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := o.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapRead("osp scan", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, wrapRead("osp scan row", err)
		}
		out = append(out, subject)
	}
	return out, wrapRead("osp scan iterate", rows.Err())
}
