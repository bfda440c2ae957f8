// internal/service/status.go
package service

import (
	"time"

	"github.com/phishguard/phishguard-backend/internal/model"
)

// DeriveStatus maps a point in time onto the campaign window:
// scheduled before start, running inside [start, end), completed from end on.
// It is the single source of truth for campaign status; the stored column is
// only a cache.
func DeriveStatus(now, start, end time.Time) string {
	if now.Before(start) {
		return model.StatusScheduled
	}
	if now.Before(end) {
		return model.StatusRunning
	}
	return model.StatusCompleted
}

// InWindow reports whether ts falls inside the campaign window, inclusive on
// both ends. Used for attributing funnel facts to a campaign's report.
func InWindow(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}
