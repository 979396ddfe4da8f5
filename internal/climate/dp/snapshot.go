package dp

import "sort"

// Value is a single decoded DP value.
type Value = any

// Snapshot maps DP keys to their decoded values.
type Snapshot map[string]Value

// Delta holds only the DP keys that changed in one device update.
type Delta = Snapshot

// Has reports whether key is present in the snapshot.
func (s Snapshot) Has(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s[key]
	return ok
}

// Get returns the value for key, or nil if absent.
func (s Snapshot) Get(key string) Value {
	if s == nil {
		return nil
	}
	return s[key]
}

// Clone returns a shallow copy. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new snapshot with every key of delta applied over s.
func (s Snapshot) Merge(delta Delta) Snapshot {
	out := s.Clone()
	for k, v := range delta {
		out[k] = v
	}
	return out
}

// Subset returns a new snapshot restricted to keys. Missing keys are skipped.
func (s Snapshot) Subset(keys []string) Snapshot {
	out := make(Snapshot, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Keys returns the snapshot keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasAny reports whether any of keys is present.
func (s Snapshot) HasAny(keys ...string) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// Diff returns the entries of next whose value differs from s, including keys
// that s does not have. Keys removed in next are not reported.
func (s Snapshot) Diff(next Snapshot) Delta {
	delta := make(Delta)
	for k, v := range next {
		old, ok := s[k]
		if !ok || !Equal(old, v) {
			delta[k] = v
		}
	}
	return delta
}
