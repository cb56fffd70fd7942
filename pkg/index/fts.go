package index

import (
	"context"
	"math"
	"sort"

	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type ftsIndex struct{ db *sqlstore.Store }

func (f *ftsIndex) index(ctx context.Context, t types.Triple) error {
	tokens := tokenize(t.Object.Str)
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	for term, count := range tf {
		_, err := f.db.DB.ExecContext(ctx,
			`INSERT INTO idx_fts (term, entity_id, predicate, score) VALUES (?, ?, ?, ?)
			 ON CONFLICT(term, entity_id, predicate) DO UPDATE SET score = excluded.score`,
			term, string(t.Subject), string(t.Predicate), count)
		if err != nil {
			return wrapWrite("fts index posting", err)
		}
	}
	_, err := f.db.DB.ExecContext(ctx,
		`INSERT INTO idx_fts_doclen (entity_id, predicate, length) VALUES (?, ?, ?)
		 ON CONFLICT(entity_id, predicate) DO UPDATE SET length = excluded.length`,
		string(t.Subject), string(t.Predicate), len(tokens))
	return wrapWrite("fts index doclen", err)
}

func (f *ftsIndex) unindex(ctx context.Context, t types.Triple) error {
	if t.Object.Tag != types.TagString {
		return nil
	}
	if _, err := f.db.DB.ExecContext(ctx,
		`DELETE FROM idx_fts WHERE entity_id = ? AND predicate = ?`, string(t.Subject), string(t.Predicate)); err != nil {
		return wrapWrite("fts unindex postings", err)
	}
	_, err := f.db.DB.ExecContext(ctx,
		`DELETE FROM idx_fts_doclen WHERE entity_id = ? AND predicate = ?`, string(t.Subject), string(t.Predicate))
	return wrapWrite("fts unindex doclen", err)
}

// Hit is one scored FTS result.
type Hit struct {
	EntityID  string
	Predicate string
	Score     float64
}

// Search runs a BM25-scored query over the given text, optionally
// restricted to one predicate (empty string means "any predicate").
func (f *ftsIndex) Search(ctx context.Context, query, predicate string, limit int) ([]Hit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	totalDocs, avgLen, err := f.corpusStats(ctx, predicate)
	if err != nil {
		return nil, err
	}
	if totalDocs == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		df, err := f.documentFrequency(ctx, term, predicate)
		if err != nil {
			return nil, err
		}
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(totalDocs)-float64(df)+0.5)/(float64(df)+0.5))

		postings, err := f.postings(ctx, term, predicate)
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			docLen, err := f.docLength(ctx, p.entityID, p.predicate)
			if err != nil {
				return nil, err
			}
			norm := 1 - bm25B + bm25B*(float64(docLen)/avgLen)
			score := idf * (p.tf * (bm25K1 + 1)) / (p.tf + bm25K1*norm)
			scores[p.entityID+"|"+p.predicate] += score
		}
	}

	hits := make([]Hit, 0, len(scores))
	for key, score := range scores {
		entityID, pred := splitKey(key)
		hits = append(hits, Hit{EntityID: entityID, Predicate: pred, Score: score})
	}
	sortHitsDesc(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

type posting struct {
	entityID  string
	predicate string
	tf        float64
}

func (f *ftsIndex) postings(ctx context.Context, term, predicate string) ([]posting, error) {
	query := `SELECT entity_id, predicate, score FROM idx_fts WHERE term = ?`
	args := []any{term}
	if predicate != "" {
		query += ` AND predicate = ?`
		args = append(args, predicate)
	}
	rows, err := f.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapRead("fts postings", err)
	}
	defer rows.Close()

	var out []posting
	for rows.Next() {
		var p posting
		if err := rows.Scan(&p.entityID, &p.predicate, &p.tf); err != nil {
			return nil, wrapRead("fts postings row", err)
		}
		out = append(out, p)
	}
	return out, wrapRead("fts postings iterate", rows.Err())
}

func (f *ftsIndex) documentFrequency(ctx context.Context, term, predicate string) (int, error) {
	query := `SELECT COUNT(*) FROM idx_fts WHERE term = ?`
	args := []any{term}
	if predicate != "" {
		query += ` AND predicate = ?`
		args = append(args, predicate)
	}
	var n int
	err := f.db.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, wrapRead("fts document frequency", err)
}

func (f *ftsIndex) docLength(ctx context.Context, entityID, predicate string) (int, error) {
	var n int
	err := f.db.DB.QueryRowContext(ctx,
		`SELECT length FROM idx_fts_doclen WHERE entity_id = ? AND predicate = ?`, entityID, predicate).Scan(&n)
	if err != nil {
		return 1, nil // unknown length: treat as length 1 rather than failing the query
	}
	return n, nil
}

func (f *ftsIndex) corpusStats(ctx context.Context, predicate string) (int, float64, error) {
	query := `SELECT COUNT(*), COALESCE(AVG(length), 1) FROM idx_fts_doclen`
	args := []any{}
	if predicate != "" {
		query += ` WHERE predicate = ?`
		args = append(args, predicate)
	}
	var total int
	var avg float64
	err := f.db.DB.QueryRowContext(ctx, query, args...).Scan(&total, &avg)
	if err != nil {
		return 0, 0, wrapRead("fts corpus stats", err)
	}
	if avg == 0 {
		avg = 1
	}
	return total, avg, nil
}

func splitKey(key string) (string, string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func sortHitsDesc(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}
