package user

import (
	"slices"
	"sort"
)

// Registry holds the live user records keyed by ID.
// It is not safe for concurrent use; the relay hub is its only owner.
type Registry struct {
	users map[string]*User
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*User)}
}

// Get returns the record for id.
func (r *Registry) Get(id string) (*User, bool) {
	u, ok := r.users[id]
	return u, ok
}

// Put stores u, replacing any record with the same ID.
func (r *Registry) Put(u *User) {
	r.users[u.ID] = u
}

// Delete removes the record for id and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	if _, ok := r.users[id]; !ok {
		return false
	}
	delete(r.users, id)
	return true
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.users)
}

// UpdateData applies p to the record for id. Unknown ids are a no-op.
// It reports whether any field changed.
func (r *Registry) UpdateData(id string, p Patch) bool {
	u, ok := r.users[id]
	if !ok {
		return false
	}
	return p.Apply(u)
}

// UpdateListeningTo replaces the subscription list of id with list, minus
// self-references and duplicates. It reports found=false for an unknown id
// and changed=false when the filtered list equals the current one.
func (r *Registry) UpdateListeningTo(id string, list []string) (changed, found bool) {
	u, ok := r.users[id]
	if !ok {
		return false, false
	}

	filtered := filterListening(id, list)
	if slices.Equal(u.ListeningTo, filtered) {
		return false, true
	}

	u.ListeningTo = filtered
	return true, true
}

// ClearListeningTo empties the subscription list of id and reports whether id exists.
func (r *Registry) ClearListeningTo(id string) bool {
	u, ok := r.users[id]
	if !ok {
		return false
	}
	u.ListeningTo = []string{}
	return true
}

// Listeners returns the IDs of users subscribed to id, sorted.
func (r *Registry) Listeners(id string) []string {
	var out []string
	for uid, u := range r.users {
		if u.IsListeningTo(id) {
			out = append(out, uid)
		}
	}
	sort.Strings(out)
	return out
}

// Each calls fn for every record in ID order.
func (r *Registry) Each(fn func(u *User)) {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fn(r.users[id])
	}
}

func filterListening(self string, list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))

	for _, id := range list {
		if id == self || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
