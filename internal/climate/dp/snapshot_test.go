package dp

import (
	"reflect"
	"testing"
)

func TestSnapshotMergeDoesNotMutate(t *testing.T) {
	base := Snapshot{"1": true, "4": "cold"}
	merged := base.Merge(Delta{"4": "hot", "2": 220})

	if base["4"] != "cold" {
		t.Errorf("base mutated: mode = %v", base["4"])
	}
	want := Snapshot{"1": true, "4": "hot", "2": 220}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("Merge() = %v, want %v", merged, want)
	}
}

func TestSnapshotNilSafe(t *testing.T) {
	var s Snapshot
	if s.Has("1") {
		t.Error("nil snapshot reports key present")
	}
	if s.Get("1") != nil {
		t.Error("nil snapshot returned a value")
	}
	if len(s.Clone()) != 0 {
		t.Error("clone of nil snapshot not empty")
	}
}

func TestSnapshotSubsetAndKeys(t *testing.T) {
	s := Snapshot{"1": true, "2": 220, "3": 26}
	sub := s.Subset([]string{"3", "1", "99"})
	if got := sub.Keys(); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("Subset().Keys() = %v, want [1 3]", got)
	}
	if !s.HasAny("99", "2") {
		t.Error("HasAny(99, 2) = false, want true")
	}
}

func TestSnapshotDiff(t *testing.T) {
	prev := Snapshot{"1": true, "2": 220, "4": "cold"}
	next := Snapshot{"1": true, "2": 230.0, "4": "cold", "5": "low"}

	got := prev.Diff(next)
	want := Delta{"2": 230.0, "5": "low"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diff() = %v, want %v", got, want)
	}
}
