package services

import (
	"reflect"
	"testing"

	"anonchat_server/models"
)

func TestRegistryLazyCreate(t *testing.T) {
	r := NewUserRegistry()

	if _, ok := r.Lookup("u1"); ok {
		t.Fatal("Lookup reported an unseen id")
	}

	user := r.Get("u1")
	if user.State != models.StateIdle {
		t.Errorf("new user state = %q, want idle", user.State)
	}
	if user.UserID != "u1" {
		t.Errorf("new user id = %q, want u1", user.UserID)
	}

	// Same record on repeat access, never a fresh one.
	user.State = models.StateWaiting
	if again := r.Get("u1"); again.State != models.StateWaiting {
		t.Error("Get returned a different record for a known id")
	}
}

func TestRegistryKnownIDsSorted(t *testing.T) {
	r := NewUserRegistry()
	for _, id := range []string{"zed", "amy", "mia"} {
		r.Get(id)
	}

	got := r.AllKnownUserIDs()
	want := []string{"amy", "mia", "zed"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllKnownUserIDs() = %v, want %v", got, want)
	}
}
