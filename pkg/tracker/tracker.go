// Package tracker keeps the identifiers of platform resources this client
// created and believes are still live, so they can be cleaned up later.
package tracker

import (
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Tracker records live inference services and fine-tune jobs. It is safe
// for concurrent use. A nil *Tracker ignores all updates.
type Tracker struct {
	mu       sync.Mutex
	services sets.Set[string]
	jobs     sets.Set[string]
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		services: sets.New[string](),
		jobs:     sets.New[string](),
	}
}

func (t *Tracker) TrackService(name string) {
	if t == nil || name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.services.Insert(name)
}

func (t *Tracker) UntrackService(name string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.services.Delete(name)
}

func (t *Tracker) TrackJob(id string) {
	if t == nil || id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs.Insert(id)
}

func (t *Tracker) UntrackJob(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs.Delete(id)
}

// Services returns the tracked service names, sorted.
func (t *Tracker) Services() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return sets.List(t.services)
}

// Jobs returns the tracked fine-tune job IDs, sorted.
func (t *Tracker) Jobs() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return sets.List(t.jobs)
}

// Len returns the number of tracked resources of both kinds.
func (t *Tracker) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.services.Len() + t.jobs.Len()
}
