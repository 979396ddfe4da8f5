// Package reconcile turns DP deltas into the minimal set of property updates.
//
// A Reconciler indexes every enabled property by the DP keys it depends on.
// When a delta arrives, only properties touching a changed key are
// re-derived, and a property whose new value equals the last value pushed is
// suppressed. Applying the same delta twice therefore yields no updates the
// second time.
//
// A Reconciler is not safe for concurrent use; the sync engine serializes
// access.
package reconcile

import (
	"cmp"
	"slices"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
)

// Update is one property value to push to the client.
type Update struct {
	Property accessory.Property `json:"property"`
	Value    any                `json:"value"`
}

// Reconciler tracks the last value pushed per property.
type Reconciler struct {
	acc   *accessory.Accessory
	byKey map[string][]accessory.Property
	rank  map[accessory.Property]int
	last  map[accessory.Property]any
}

// New indexes the enabled properties of acc by dependency key.
func New(acc *accessory.Accessory) *Reconciler {
	props := acc.Properties()
	r := &Reconciler{
		acc:   acc,
		byKey: make(map[string][]accessory.Property),
		rank:  make(map[accessory.Property]int, len(props)),
		last:  make(map[accessory.Property]any, len(props)),
	}
	for i, p := range props {
		r.rank[p] = i
		for _, key := range acc.Dependencies(p) {
			r.byKey[key] = append(r.byKey[key], p)
		}
	}
	return r
}

// Prime derives every enabled property from snap and records the results as
// pushed. It returns all of them, in canonical order, for the initial
// publication.
func (r *Reconciler) Prime(snap dp.Snapshot) []Update {
	props := r.acc.Properties()
	out := make([]Update, 0, len(props))
	for _, p := range props {
		// Enabled properties are always derivable.
		v, _ := r.acc.Derive(p, snap)
		r.last[p] = v
		out = append(out, Update{Property: p, Value: v})
	}
	return out
}

// Affected returns the enabled properties depending on any of keys, in
// canonical order and without duplicates.
func (r *Reconciler) Affected(keys []string) []accessory.Property {
	seen := make(map[accessory.Property]bool)
	var out []accessory.Property
	for _, key := range keys {
		for _, p := range r.byKey[key] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	slices.SortFunc(out, func(a, b accessory.Property) int {
		return cmp.Compare(r.rank[a], r.rank[b])
	})
	return out
}

// Apply re-derives the properties touched by delta against the full
// post-change snapshot.
//
// Parameters:
//   - delta: Keys changed by one device update
//   - snap: Complete snapshot with delta already merged
//
// Returns:
//   - []Update: Properties whose value differs from the last one pushed
func (r *Reconciler) Apply(delta dp.Delta, snap dp.Snapshot) []Update {
	var out []Update
	for _, p := range r.Affected(delta.Keys()) {
		v, _ := r.acc.Derive(p, snap)
		if prev, pushed := r.last[p]; pushed && dp.Equal(prev, v) {
			continue
		}
		r.last[p] = v
		out = append(out, Update{Property: p, Value: v})
	}
	return out
}

// Record marks v as pushed for p without deriving it. The engine uses this
// after an optimistic write so the confirming delta is suppressed.
func (r *Reconciler) Record(p accessory.Property, v any) {
	r.last[p] = v
}

// Last returns the last value pushed for p.
func (r *Reconciler) Last(p accessory.Property) (any, bool) {
	v, ok := r.last[p]
	return v, ok
}

// Values returns a copy of every last-pushed value.
func (r *Reconciler) Values() accessory.Values {
	out := make(accessory.Values, len(r.last))
	for p, v := range r.last {
		out[p] = v
	}
	return out
}

// Reset forgets every pushed value so the next Apply reports all affected
// properties.
func (r *Reconciler) Reset() {
	clear(r.last)
}
