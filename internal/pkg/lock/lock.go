// Package lock provides per-building locking so that concurrent economic
// actions against the same building are serialized in-process before they
// reach the database transaction.
package lock

import (
	"sync"
)

// buildingMutex wraps a mutex with reference counting for cleanup.
type buildingMutex struct {
	mu       sync.Mutex
	refCount int
}

// BuildingLock provides per-building locking to prevent race conditions
// during damage, fire and cash mutations.
type BuildingLock struct {
	locks sync.Map // map[int64]*buildingMutex
	pool  sync.Pool
}

// NewBuildingLock creates a new BuildingLock instance.
func NewBuildingLock() *BuildingLock {
	return &BuildingLock{
		pool: sync.Pool{
			New: func() any {
				return &buildingMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given building ID.
func (bl *BuildingLock) getLock(buildingID int64) *buildingMutex {
	// Try to load existing lock
	if v, ok := bl.locks.Load(buildingID); ok {
		return v.(*buildingMutex)
	}

	// Create new lock from pool
	newLock := bl.pool.Get().(*buildingMutex)
	newLock.refCount = 0

	// Store or load existing (handles race condition)
	actual, loaded := bl.locks.LoadOrStore(buildingID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		bl.pool.Put(newLock)
	}
	return actual.(*buildingMutex)
}

// Lock acquires the lock for a building.
// This should be called before any building-mutating action.
func (bl *BuildingLock) Lock(buildingID int64) {
	lock := bl.getLock(buildingID)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a building.
func (bl *BuildingLock) Unlock(buildingID int64) {
	if v, ok := bl.locks.Load(buildingID); ok {
		lock := v.(*buildingMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (bl *BuildingLock) TryLock(buildingID int64) bool {
	lock := bl.getLock(buildingID)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes a function while holding the building's lock.
// This is a convenience method that ensures proper lock/unlock.
func (bl *BuildingLock) WithLock(buildingID int64, fn func() error) error {
	bl.Lock(buildingID)
	defer bl.Unlock(buildingID)
	return fn()
}

// IsLocked checks if a building currently has an active lock.
// Note: This is a point-in-time check and may change immediately after.
func (bl *BuildingLock) IsLocked(buildingID int64) bool {
	if v, ok := bl.locks.Load(buildingID); ok {
		lock := v.(*buildingMutex)
		// Try to acquire and immediately release to check if locked
		if lock.mu.TryLock() {
			lock.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
