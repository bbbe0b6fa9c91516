// Package diff compares two rosters of the same group.
package diff

import "github.com/bcnelson/roster-monitor/internal/domain"

// Compare returns the changes that turn oldRoster into newRoster.
//
// Members are matched by UniqueID only. Added and AdminChanges follow the
// order of newRoster, Removed follows the order of oldRoster. An empty
// oldRoster yields the whole newRoster as Added.
func Compare(newRoster, oldRoster domain.Roster) domain.Delta {
	oldIdx := oldRoster.Index()
	newIdx := newRoster.Index()

	delta := domain.Delta{
		Added:        []domain.Member{},
		Removed:      []domain.Member{},
		AdminChanges: []domain.AdminChange{},
	}

	for _, m := range newRoster {
		prev, ok := oldIdx[m.UniqueID]
		if !ok {
			delta.Added = append(delta.Added, m)
			continue
		}
		if prev.IsAdmin != m.IsAdmin {
			delta.AdminChanges = append(delta.AdminChanges, domain.AdminChange{
				UniqueID: m.UniqueID,
				Name:     m.Name,
				Previous: prev.IsAdmin,
				New:      m.IsAdmin,
			})
		}
	}

	for _, m := range oldRoster {
		if _, ok := newIdx[m.UniqueID]; !ok {
			delta.Removed = append(delta.Removed, m)
		}
	}

	return delta
}
