package collision

import (
	"fmt"

	"github.com/arloliu/linmix/errs"
)

// Tracker records the snapshot entries written so far and detects hash collisions
// between distinct entry names.
type Tracker struct {
	byID         map[uint64]string
	names        []string
	hasCollision bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byID: make(map[uint64]string)}
}

// Track registers an entry name with its hash.
//
// An empty or repeated name is an error. A different name with the same hash is not:
// the collision flag is set and readers fall back to comparing names.
func (t *Tracker) Track(name string, id uint64) error {
	if name == "" {
		return fmt.Errorf("%w: empty entry name", errs.ErrInvalidSnapshotIndex)
	}

	if existing, ok := t.byID[id]; ok {
		if existing == name {
			return fmt.Errorf("%w: duplicate entry %q", errs.ErrInvalidSnapshotIndex, name)
		}
		t.hasCollision = true
	}

	t.byID[id] = name
	t.names = append(t.names, name)

	return nil
}

// HasCollision reports whether two tracked names share a hash.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// Names returns the tracked names in insertion order.
func (t *Tracker) Names() []string {
	return t.names
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	return len(t.names)
}
