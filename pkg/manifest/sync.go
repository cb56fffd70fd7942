package manifest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/graphdberr"
)

// Direction labels which way data moved during a sync operation.
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionPush Direction = "push" // local -> R2
	DirectionPull Direction = "pull" // R2 -> local
)

// Result is the structured outcome of a sync operation.
type Result struct {
	Success        bool      `json:"success"`
	Direction      Direction `json:"direction"`
	EntriesUpdated int       `json:"entriesUpdated"`
	Conflicts      int       `json:"conflicts"`
	Error          string    `json:"error,omitempty"`
	ErrorCode      string    `json:"errorCode,omitempty"`
}

// Status reports the sync subsystem's current state.
type Status struct {
	LastSyncTime    time.Time `json:"lastSyncTime"`
	CachedR2Version string    `json:"cachedR2Version"`
	SyncInProgress  bool      `json:"syncInProgress"`
}

// Syncer bidirectionally synchronizes one namespace's manifest
// between the local Store and the authoritative blob-store copy,
// serializing all sync operations through a single mutex so at most
// one sync runs at a time.
type Syncer struct {
	store  *Store
	blobs  blobstore.Store
	mu     sync.Mutex
	status Status
}

func NewSyncer(store *Store, blobs blobstore.Store) *Syncer {
	return &Syncer{store: store, blobs: blobs}
}

func (sy *Syncer) withSyncLock(fn func() Result) Result {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	sy.status.SyncInProgress = true
	res := fn()
	sy.status.SyncInProgress = false
	if res.Success {
		sy.status.LastSyncTime = time.Now()
	}
	return res
}

func (sy *Syncer) fetchR2(ctx context.Context, namespace string) (Manifest, bool, error) {
	path := manifestBlobPath(namespace)
	_, data, err := sy.blobs.Get(ctx, path, nil)
	if err == blobstore.ErrNotFound {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, graphdberr.Wrap(graphdberr.CodeR2FetchFailed, "fetch r2 manifest", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, graphdberr.Wrap(graphdberr.CodeInvalidManifest, "parse r2 manifest", err)
	}
	return m, true, nil
}

func manifestBlobPath(namespace string) string {
	return namespace + "/_manifest.json"
}

// SyncFromR2 pulls the authoritative manifest into the local store.
// A missing R2 manifest is a no-op success, not an error.
func (sy *Syncer) SyncFromR2(ctx context.Context, namespace string) Result {
	return sy.withSyncLock(func() Result {
		r2, ok, err := sy.fetchR2(ctx, namespace)
		if err != nil {
			return errResult(err)
		}
		if !ok {
			return Result{Success: true, Direction: DirectionNone}
		}
		if err := sy.store.ImportFromR2Manifest(ctx, r2); err != nil {
			return errResult(graphdberr.Wrap(graphdberr.CodeImportFailed, "import r2 manifest", err))
		}
		sy.status.CachedR2Version = r2.Version
		return Result{Success: true, Direction: DirectionPull, EntriesUpdated: len(r2.Chunks)}
	})
}

// SyncToR2 pushes the local manifest to the blob store. A locally
// empty manifest is skipped rather than overwriting R2 with nothing.
func (sy *Syncer) SyncToR2(ctx context.Context, namespace string) Result {
	return sy.withSyncLock(func() Result {
		local, ok, err := sy.store.ExportToR2Manifest(ctx, namespace)
		if err != nil {
			return errResult(err)
		}
		if !ok || len(local.Chunks) == 0 {
			return Result{Success: true, Direction: DirectionNone}
		}
		data, err := json.Marshal(local)
		if err != nil {
			return errResult(graphdberr.Wrap(graphdberr.CodeExportFailed, "marshal local manifest", err))
		}
		if err := sy.blobs.Put(ctx, manifestBlobPath(namespace), data, blobstore.PutOptions{ContentType: "application/json"}); err != nil {
			return errResult(graphdberr.Wrap(graphdberr.CodeR2WriteFailed, "write r2 manifest", err))
		}
		sy.status.CachedR2Version = local.Version
		return Result{Success: true, Direction: DirectionPush, EntriesUpdated: len(local.Chunks)}
	})
}

// FullSync reconciles local and R2 state, with R2 as tiebreaker on
// any version conflict.
func (sy *Syncer) FullSync(ctx context.Context, namespace string) Result {
	return sy.withSyncLock(func() Result {
		r2, r2ok, err := sy.fetchR2(ctx, namespace)
		if err != nil {
			return errResult(err)
		}
		local, localOk, err := sy.store.ExportToR2Manifest(ctx, namespace)
		if err != nil {
			return errResult(err)
		}

		switch {
		case !r2ok && !localOk:
			return Result{Success: true, Direction: DirectionNone}
		case !r2ok && localOk && len(local.Chunks) > 0:
			return sy.pushLocked(ctx, namespace, local)
		case !localOk || len(local.Chunks) == 0 || local.Version != r2.Version:
			conflicts := 0
			if localOk && len(local.Chunks) > 0 && local.Version != r2.Version {
				conflicts = 1
			}
			if err := sy.store.ImportFromR2Manifest(ctx, r2); err != nil {
				return errResult(graphdberr.Wrap(graphdberr.CodeImportFailed, "import r2 manifest", err))
			}
			sy.status.CachedR2Version = r2.Version
			return Result{Success: true, Direction: DirectionPull, EntriesUpdated: len(r2.Chunks), Conflicts: conflicts}
		default:
			return Result{Success: true, Direction: DirectionNone}
		}
	})
}

func (sy *Syncer) pushLocked(ctx context.Context, namespace string, local Manifest) Result {
	data, err := json.Marshal(local)
	if err != nil {
		return errResult(graphdberr.Wrap(graphdberr.CodeExportFailed, "marshal local manifest", err))
	}
	if err := sy.blobs.Put(ctx, manifestBlobPath(namespace), data, blobstore.PutOptions{ContentType: "application/json"}); err != nil {
		return errResult(graphdberr.Wrap(graphdberr.CodeR2WriteFailed, "write r2 manifest", err))
	}
	sy.status.CachedR2Version = local.Version
	return Result{Success: true, Direction: DirectionPush, EntriesUpdated: len(local.Chunks)}
}

// NeedsSync reports whether the cached R2 version looks stale enough
// to warrant a FullSync call (a cheap heuristic: callers on a timer
// loop check this before paying for a fetch).
func (sy *Syncer) NeedsSync(maxAge time.Duration) bool {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	return time.Since(sy.status.LastSyncTime) > maxAge
}

// GetSyncStatus returns a snapshot of the syncer's current status.
func (sy *Syncer) GetSyncStatus() Status {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	return sy.status
}

func errResult(err error) Result {
	return Result{
		Success:   false,
		Direction: DirectionNone,
		Error:     err.Error(),
		ErrorCode: string(graphdberr.CodeOf(err)),
	}
}
