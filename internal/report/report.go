// Package report renders history entries as plain text.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bcnelson/roster-monitor/internal/domain"
)

const separator = "===================="

// Render formats one history entry as a report block.
// Blocks start with a blank line and a separator so they can be appended
// to the same file run after run.
func Render(group domain.Group, entry *domain.HistoryEntry) string {
	var b strings.Builder

	b.WriteString("\n" + separator + "\n")
	fmt.Fprintf(&b, "Report for group %q (%s)\n", group.Name, group.ID)
	fmt.Fprintf(&b, "Date: %s\n\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "New members (%d):\n", len(entry.Added))
	for _, m := range entry.Added {
		fmt.Fprintf(&b, "  - %s (ID: %s)\n", m.Name, m.UniqueID)
	}

	fmt.Fprintf(&b, "\nDeparted members (%d):\n", len(entry.Removed))
	for _, m := range entry.Removed {
		fmt.Fprintf(&b, "  - %s (ID: %s)\n", m.Name, m.UniqueID)
	}

	fmt.Fprintf(&b, "\nAdmin status changes (%d):\n", len(entry.AdminChanges))
	for _, c := range entry.AdminChanges {
		fmt.Fprintf(&b, "  - %s (ID: %s): %t => %t\n", c.Name, c.UniqueID, c.Previous, c.New)
	}

	fmt.Fprintf(&b, "\nTimestamp: %s\n", entry.Timestamp.UTC().Format(time.RFC3339))
	return b.String()
}

// RenderAll renders entries in order as one document.
func RenderAll(group domain.Group, entries []*domain.HistoryEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(Render(group, e))
	}
	return b.String()
}
