// Package keyonlylocks implements non-blocking named locks over a sync.Map.
// A key is held while it is present in the map.
package keyonlylocks

import (
	"sort"
	"sync"
)

// AcquireLocks takes every key or none. Keys are taken in sorted order and
// duplicates are collapsed, so two callers asking for overlapping sets
// cannot each hold part of the other's set.
func AcquireLocks(lockStore *sync.Map, keys []string) ([]string, bool) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	acquired := make([]string, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		_, loaded := lockStore.LoadOrStore(key, struct{}{})
		if loaded {
			// rollback previously acquired locks
			ReleaseLocks(lockStore, acquired)
			return nil, false
		}
		acquired = append(acquired, key)
	}
	return acquired, true
}

// ReleaseLocks delete locks from the lockStore *sync.Map
// Wrap this in deferred calls to guarantee to be called even if panic occurs.
func ReleaseLocks(lockStore *sync.Map, keys []string) {
	for _, key := range keys {
		lockStore.Delete(key)
	}
}
