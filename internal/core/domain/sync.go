// internal/core/domain/sync.go
package domain

import (
	"sort"
	"time"
)

// MaxRetryCount bounds the add attempts for a single item within one sync pass
const MaxRetryCount = 3

// ItemState is the synchronization state of a single cart line
type ItemState string

const (
	ItemLocalOnly   ItemState = "local_only"
	ItemPendingSync ItemState = "pending_sync"
	ItemLinked      ItemState = "linked"
	ItemFailed      ItemState = "failed"
	ItemUnknown     ItemState = "unknown"
)

// SyncState is a read-only view of the controller's reconciliation state
type SyncState struct {
	Pending    []int64   `json:"pending"`
	Failed     []int64   `json:"failed"`
	IsSyncing  bool      `json:"is_syncing"`
	LastError  error     `json:"-"`
	RetryCount int       `json:"retry_count"`
	LastSyncAt time.Time `json:"last_sync_at,omitempty"`
	Generation uint64    `json:"generation"`
}

// HasPending reports whether any item still waits for its first remote create
func (s SyncState) HasPending() bool {
	return len(s.Pending) > 0 || len(s.Failed) > 0
}

// SortedIDs returns the keys of set in ascending order
func SortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
