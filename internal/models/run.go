package models

import "time"

// Run records one batch execution.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Source     string    `json:"source"`
	Fetched    int       `json:"fetched"`
	Added      int       `json:"added"`
	Removed    int       `json:"removed"`
	Expired    int       `json:"expired"`
	Total      int       `json:"total"`
	New        int       `json:"new"`
	Sent       int       `json:"sent"`
	Skipped    string    `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
}
