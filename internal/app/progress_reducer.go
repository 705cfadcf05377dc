package app

import (
	"sync"

	"ecoquest-service/internal/domain"
)

// ProgressReducer keeps the last-known-good profile snapshot plus any locally
// applied, not-yet-confirmed deltas so the displayed state never regresses
// while a write is in flight.
//
// Reconciliation rule: an authoritative push replaces the snapshot, but each
// numeric counter is merged monotonic-max against the optimistic view. The
// part of a pending delta the push already covers is dropped; the remainder
// stays pending until a later push catches up.
type ProgressReducer struct {
	mu       sync.Mutex
	snapshot domain.UserProfile
	loaded   bool
	pending  domain.ProgressDelta
}

func NewProgressReducer() *ProgressReducer {
	return &ProgressReducer{}
}

// Apply records a local optimistic delta.
func (r *ProgressReducer) Apply(delta domain.ProgressDelta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending.EcoPoints += delta.EcoPoints
	r.pending.Experience += delta.Experience
}

// Reconcile merges an authoritative snapshot from the subscription feed.
func (r *ProgressReducer) Reconcile(p domain.UserProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		r.pending.EcoPoints = remainder(r.snapshot.EcoPoints, r.pending.EcoPoints, p.EcoPoints)
		r.pending.Experience = remainder(r.snapshot.Experience, r.pending.Experience, p.Experience)
	} else {
		// First snapshot: any deltas applied before it are assumed covered.
		r.pending = domain.ProgressDelta{}
	}
	r.snapshot = p
	r.loaded = true
}

// remainder returns how much of a pending delta an authoritative value still
// has to catch up to, clamped to [0, pending].
func remainder(base, pending, authoritative int) int {
	rest := base + pending - authoritative
	if rest < 0 {
		return 0
	}
	if rest > pending {
		return pending
	}
	return rest
}

// Current returns the display view: the snapshot with pending deltas applied
// and derived level fields refreshed. ok is false before the first snapshot.
func (r *ProgressReducer) Current() (domain.UserProfile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		return domain.UserProfile{}, false
	}
	view := r.snapshot
	view.Badges = append([]string(nil), r.snapshot.Badges...)
	view.EcoPoints += r.pending.EcoPoints
	view.Experience += r.pending.Experience
	domain.ApplyLeveling(&view)
	return view, true
}
