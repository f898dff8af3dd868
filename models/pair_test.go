package models

import "testing"

func TestPairKeySymmetric(t *testing.T) {
	if PairKey("alice", "bob") != PairKey("bob", "alice") {
		t.Error("PairKey is not order-independent")
	}
	if got, want := PairKey("bob", "alice"), "alice#bob"; got != want {
		t.Errorf("PairKey = %q, want %q", got, want)
	}
}
