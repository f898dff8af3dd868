package services

import (
	"sort"

	"anonchat_server/models"
)

// UserRegistry holds the in-memory record for every user id this service has
// ever seen. Records are created lazily on first lookup and never deleted.
//
// The registry carries no lock of its own: every access goes through the
// PairingService mutex, which is the single serialization point for all
// pairing state.
type UserRegistry struct {
	users map[string]*models.User
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{users: make(map[string]*models.User)}
}

// Get returns the record for id, creating an Idle record if the id has not
// been seen before.
func (r *UserRegistry) Get(id string) *models.User {
	if user, ok := r.users[id]; ok {
		return user
	}
	user := &models.User{UserID: id, State: models.StateIdle}
	r.users[id] = user
	return user
}

// Lookup returns the record for id without creating one.
func (r *UserRegistry) Lookup(id string) (*models.User, bool) {
	user, ok := r.users[id]
	return user, ok
}

// AllKnownUserIDs returns every id ever seen, sorted for stable output.
func (r *UserRegistry) AllKnownUserIDs() []string {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
