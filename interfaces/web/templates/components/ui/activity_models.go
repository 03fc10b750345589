package ui

import "time"

// ActivityEntryView is the view model for one activity feed entry.
type ActivityEntryView struct {
	Kind      string    `json:"kind"`
	Level     string    `json:"level"`
	List      string    `json:"list"`
	Message   string    `json:"message"`
	When      string    `json:"when"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityFeedView is the view model for the activity page.
type ActivityFeedView struct {
	Entries []ActivityEntryView `json:"entries"`
	Total   int                 `json:"total"`
}

func levelClass(level string) string {
	switch level {
	case "error":
		return "border-red-300 bg-red-50 text-red-800"
	case "warn":
		return "border-amber-300 bg-amber-50 text-amber-800"
	default:
		return "border-slate-200 bg-white text-slate-800"
	}
}
