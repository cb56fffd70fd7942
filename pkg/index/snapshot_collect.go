package index

import "context"

func (s *Store) collectPOS(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT predicate, value_hash, subject FROM idx_pos`)
	if err != nil {
		return wrapRead("collect pos", err)
	}
	defer rows.Close()
	for rows.Next() {
		var predicate, valueHash, subject string
		if err := rows.Scan(&predicate, &valueHash, &subject); err != nil {
			return wrapRead("collect pos row", err)
		}
		key := predicate + "|" + valueHash
		snap.POS[key] = append(snap.POS[key], subject)
	}
	return wrapRead("collect pos iterate", rows.Err())
}

func (s *Store) collectOSP(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT object_ref, predicate, subject FROM idx_osp`)
	if err != nil {
		return wrapRead("collect osp", err)
	}
	defer rows.Close()
	for rows.Next() {
		var objectRef, predicate, subject string
		if err := rows.Scan(&objectRef, &predicate, &subject); err != nil {
			return wrapRead("collect osp row", err)
		}
		key := objectRef + "|" + predicate
		snap.OSP[key] = append(snap.OSP[key], subject)
	}
	return wrapRead("collect osp iterate", rows.Err())
}

func (s *Store) collectFTS(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT term, entity_id, predicate, score FROM idx_fts`)
	if err != nil {
		return wrapRead("collect fts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p ftsPosting
		if err := rows.Scan(&p.Term, &p.EntityID, &p.Predicate, &p.Score); err != nil {
			return wrapRead("collect fts row", err)
		}
		snap.FTS = append(snap.FTS, p)
	}
	return wrapRead("collect fts iterate", rows.Err())
}

func (s *Store) collectGEO(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT geohash, entity_id, lat, lng FROM idx_geo`)
	if err != nil {
		return wrapRead("collect geo", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p geoPosting
		if err := rows.Scan(&p.Geohash, &p.EntityID, &p.Lat, &p.Lng); err != nil {
			return wrapRead("collect geo row", err)
		}
		snap.GEO = append(snap.GEO, p)
	}
	return wrapRead("collect geo iterate", rows.Err())
}

// restore repopulates every hot table from a decoded snapshot.
// Postings recompute their compound keys from the snapshot map keys
// rather than trusting any stored split, since "|" is not forbidden
// in a predicate or object ref.
func (s *Store) restore(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapWrite("begin restore tx", err)
	}

	for key, subjects := range snap.POS {
		predicate, valueHash := splitKey(key)
		for _, subject := range subjects {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO idx_pos (predicate, value_hash, subject) VALUES (?, ?, ?)`,
				predicate, valueHash, subject); err != nil {
				_ = tx.Rollback()
				return wrapWrite("restore pos", err)
			}
		}
	}
	for key, subjects := range snap.OSP {
		objectRef, predicate := splitKey(key)
		for _, subject := range subjects {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO idx_osp (object_ref, predicate, subject) VALUES (?, ?, ?)`,
				objectRef, predicate, subject); err != nil {
				_ = tx.Rollback()
				return wrapWrite("restore osp", err)
			}
		}
	}
	for _, p := range snap.FTS {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO idx_fts (term, entity_id, predicate, score) VALUES (?, ?, ?, ?)`,
			p.Term, p.EntityID, p.Predicate, p.Score); err != nil {
			_ = tx.Rollback()
			return wrapWrite("restore fts", err)
		}
	}
	for _, p := range snap.GEO {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO idx_geo (geohash, entity_id, lat, lng) VALUES (?, ?, ?, ?)`,
			p.Geohash, p.EntityID, p.Lat, p.Lng); err != nil {
			_ = tx.Rollback()
			return wrapWrite("restore geo", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapWrite("commit restore tx", err)
	}
	return nil
}
