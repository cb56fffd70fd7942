package index

import (
	"context"

	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

type posIndex struct{ db *sqlstore.Store }

func (p *posIndex) index(ctx context.Context, t types.Triple) error {
	vh := ValueHash(t.Object)
	if vh == "" {
		return nil
	}
	_, err := p.db.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO idx_pos (predicate, value_hash, subject) VALUES (?, ?, ?)`,
		string(t.Predicate), vh, string(t.Subject))
	return wrapWrite("pos index", err)
}

func (p *posIndex) unindex(ctx context.Context, t types.Triple) error {
	vh := ValueHash(t.Object)
	_, err := p.db.DB.ExecContext(ctx,
		`DELETE FROM idx_pos WHERE predicate = ? AND value_hash = ? AND subject = ?`,
		string(t.Predicate), vh, string(t.Subject))
	return wrapWrite("pos unindex", err)
}

// Equality returns every subject with predicate=value.
func (p *posIndex) Equality(ctx context.Context, predicate string, value types.TypedObject) ([]string, error) {
	return p.scan(ctx, `SELECT subject FROM idx_pos WHERE predicate = ? AND value_hash = ? ORDER BY subject`,
		predicate, ValueHash(value))
}

// Range returns every subject whose value_hash falls in [fromHash, toHash]
// by string comparison. Numerics and timestamps (unix millis) hash to
// plain decimal text, so this order matches numeric order only for
// non-negative integers with the same number of digits.
func (p *posIndex) Range(ctx context.Context, predicate, fromHash, toHash string) ([]string, error) {
	return p.scan(ctx,
		`SELECT subject FROM idx_pos WHERE predicate = ? AND value_hash BETWEEN ? AND ? ORDER BY subject`,
		predicate, fromHash, toHash)
}

// PredicateOnly returns every subject that has any value for predicate.
func (p *posIndex) PredicateOnly(ctx context.Context, predicate string) ([]string, error) {
	return p.scan(ctx, `SELECT DISTINCT subject FROM idx_pos WHERE predicate = ? ORDER BY subject`, predicate)
}

func (p *posIndex) scan(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := p.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapRead("pos scan", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, wrapRead("pos scan row", err)
		}
		out = append(out, subject)
	}
	return out, wrapRead("pos scan iterate", rows.Err())
}
