package hnsw

import (
	"context"
	"database/sql"

	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/sqlstore"
)

// SQLGraphStore is the default GraphStore: one hnsw_nodes row per
// node, one hnsw_edges row per (layer, node, neighbor) connection,
// plus one small meta row per predicate holding the entry point.
type SQLGraphStore struct {
	db *sqlstore.Store
}

func NewSQLGraphStore(db *sqlstore.Store) *SQLGraphStore { return &SQLGraphStore{db: db} }

func wrapRead(op string, err error) error {
	if err == nil {
		return nil
	}
	return graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: "+op, err)
}

func (g *SQLGraphStore) GetNode(ctx context.Context, predicate string, id uint32) (Node, bool, error) {
	var entityID string
	var maxLayer int
	err := g.db.DB.QueryRowContext(ctx,
		`SELECT entity_id, max_layer FROM hnsw_nodes WHERE predicate = ? AND node_id = ?`,
		predicate, id).Scan(&entityID, &maxLayer)
	if err == sql.ErrNoRows {
		return Node{}, false, nil
	}
	if err != nil {
		return Node{}, false, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: get node", err)
	}

	conns, err := g.loadConnections(ctx, predicate, id, maxLayer)
	if err != nil {
		return Node{}, false, err
	}
	return Node{ID: id, EntityID: entityID, MaxLayer: maxLayer, Connections: conns}, true, nil
}

func (g *SQLGraphStore) loadConnections(ctx context.Context, predicate string, id uint32, maxLayer int) ([][]uint32, error) {
	conns := make([][]uint32, maxLayer+1)
	rows, err := g.db.DB.QueryContext(ctx,
		`SELECT layer, neighbor FROM hnsw_edges WHERE predicate = ? AND node_id = ? ORDER BY layer`,
		predicate, id)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: load connections", err)
	}
	defer rows.Close()
	for rows.Next() {
		var layer int
		var neighbor uint32
		if err := rows.Scan(&layer, &neighbor); err != nil {
			return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: scan connection", err)
		}
		for len(conns) <= layer {
			conns = append(conns, nil)
		}
		conns[layer] = append(conns[layer], neighbor)
	}
	return conns, wrapRead("iterate connections", rows.Err())
}

func (g *SQLGraphStore) PutNode(ctx context.Context, predicate string, n Node) error {
	tx, err := g.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "hnsw: begin put node tx", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO hnsw_nodes (predicate, node_id, max_layer, entity_id) VALUES (?, ?, ?, ?)
		 ON CONFLICT(predicate, node_id) DO UPDATE SET max_layer = excluded.max_layer, entity_id = excluded.entity_id`,
		predicate, n.ID, n.MaxLayer, n.EntityID); err != nil {
		_ = tx.Rollback()
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "hnsw: upsert node", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM hnsw_edges WHERE predicate = ? AND node_id = ?`, predicate, n.ID); err != nil {
		_ = tx.Rollback()
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "hnsw: clear edges", err)
	}
	for layer, neighbors := range n.Connections {
		for _, nb := range neighbors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO hnsw_edges (predicate, layer, node_id, neighbor) VALUES (?, ?, ?, ?)`,
				predicate, layer, n.ID, nb); err != nil {
				_ = tx.Rollback()
				return graphdberr.Wrap(graphdberr.CodeStorageWrite, "hnsw: insert edge", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "hnsw: commit put node", err)
	}
	return nil
}

func (g *SQLGraphStore) EntryPoint(ctx context.Context, predicate string) (uint32, int, bool, error) {
	var entry uint32
	var maxLayer, nodeCount int
	err := g.db.DB.QueryRowContext(ctx,
		`SELECT entry_point, max_layer, node_count FROM hnsw_meta WHERE predicate = ?`, predicate).
		Scan(&entry, &maxLayer, &nodeCount)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: entry point", err)
	}
	return entry, maxLayer, true, nil
}

func (g *SQLGraphStore) SetEntryPoint(ctx context.Context, predicate string, nodeID uint32, maxLayer int) error {
	count, err := g.NodeCount(ctx, predicate)
	if err != nil {
		return err
	}
	_, err = g.db.DB.ExecContext(ctx,
		`INSERT INTO hnsw_meta (predicate, entry_point, max_layer, node_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT(predicate) DO UPDATE SET entry_point = excluded.entry_point, max_layer = excluded.max_layer, node_count = excluded.node_count`,
		predicate, nodeID, maxLayer, count)
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "hnsw: set entry point", err)
	}
	return nil
}

func (g *SQLGraphStore) NodeCount(ctx context.Context, predicate string) (int, error) {
	var n int
	err := g.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hnsw_nodes WHERE predicate = ?`, predicate).Scan(&n)
	if err != nil {
		return 0, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: node count", err)
	}
	return n, nil
}

func (g *SQLGraphStore) FindByEntityID(ctx context.Context, predicate, entityID string) (uint32, bool, error) {
	var id uint32
	err := g.db.DB.QueryRowContext(ctx,
		`SELECT node_id FROM hnsw_nodes WHERE predicate = ? AND entity_id = ?`,
		predicate, entityID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: find by entity id", err)
	}
	return id, true, nil
}

func (g *SQLGraphStore) AllNodeIDs(ctx context.Context, predicate string) ([]uint32, error) {
	rows, err := g.db.DB.QueryContext(ctx,
		`SELECT node_id FROM hnsw_nodes WHERE predicate = ? ORDER BY node_id`, predicate)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: all node ids", err)
	}
	defer rows.Close()
	var out []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: scan node id", err)
		}
		out = append(out, id)
	}
	return out, wrapRead("iterate node ids", rows.Err())
}
