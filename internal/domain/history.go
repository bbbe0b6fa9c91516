package domain

import "time"

// HistoryEntry is the immutable record of one successful run for one group.
// Entries are only ever appended to a group's history.
type HistoryEntry struct {
	ID           string        `json:"id"`
	GroupID      string        `json:"groupId"`
	Timestamp    time.Time     `json:"timestamp"`
	Added        []Member      `json:"added"`
	Removed      []Member      `json:"removed"`
	AdminChanges []AdminChange `json:"adminChanges"`
}

// Delta returns the changes carried by the entry.
func (e *HistoryEntry) Delta() Delta {
	return Delta{
		Added:        e.Added,
		Removed:      e.Removed,
		AdminChanges: e.AdminChanges,
	}
}

// GroupResult is the outcome of processing one group during a run.
type GroupResult struct {
	GroupID      string `json:"groupId"`
	GroupName    string `json:"groupName"`
	EntryID      string `json:"entryId,omitempty"`
	Added        int    `json:"added"`
	Removed      int    `json:"removed"`
	AdminChanges int    `json:"adminChanges"`
	Error        string `json:"error,omitempty"`
}

// RunReport summarizes a run across all configured groups.
type RunReport struct {
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Results    []GroupResult `json:"results"`
}

// Failed returns the number of groups whose processing failed.
func (r *RunReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Error != "" {
			n++
		}
	}
	return n
}
