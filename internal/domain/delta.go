package domain

// AdminChange records a member whose admin flag flipped between two rosters.
type AdminChange struct {
	UniqueID string `json:"uniqueId"`
	Name     string `json:"name"`
	Previous bool   `json:"previous"`
	New      bool   `json:"new"`
}

// Delta is the difference between a freshly fetched roster and the baseline.
type Delta struct {
	Added        []Member      `json:"added"`
	Removed      []Member      `json:"removed"`
	AdminChanges []AdminChange `json:"adminChanges"`
}

// IsEmpty reports whether nothing changed.
func (d Delta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.AdminChanges) == 0
}
