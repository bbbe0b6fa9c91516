package domain

import "sort"

// Member is one participant of a group as of a fetch.
// UniqueID is the identity key; Name and IsAdmin may change between fetches.
type Member struct {
	UniqueID string `json:"uniqueId"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Roster is the full membership snapshot of a group, admins first.
type Roster []Member

// SortAdminsFirst moves every admin before every non-admin.
// The partition is stable: members keep their fetch order within each half.
func (r Roster) SortAdminsFirst() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].IsAdmin && !r[j].IsAdmin
	})
}

// Index returns the roster keyed by UniqueID.
func (r Roster) Index() map[string]Member {
	idx := make(map[string]Member, len(r))
	for _, m := range r {
		idx[m.UniqueID] = m
	}
	return idx
}
