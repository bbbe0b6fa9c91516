package domain

// Group is a monitored group as configured at startup.
// Groups are never persisted; their ID keys the baseline and history stores.
type Group struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// String returns a log-friendly label for the group.
func (g Group) String() string {
	if g.Name == "" {
		return g.ID
	}
	return g.Name + " (" + g.ID + ")"
}
