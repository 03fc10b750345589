package presenters

import (
	"context"
	"strings"

	"github.com/dustin/go-humanize"

	"spmodel/interfaces/web/templates/components/ui"
	"spmodel/platform/events"
)

// ActivityPresenter handles activity feed view logic and formatting.
type ActivityPresenter struct{}

// NewActivityPresenter creates a new activity presenter.
func NewActivityPresenter() *ActivityPresenter {
	return &ActivityPresenter{}
}

// ToActivityView converts a single activity entry.
func (p *ActivityPresenter) ToActivityView(entry events.ActivityEntry) ui.ActivityEntryView {
	return ui.ActivityEntryView{
		Kind:      string(entry.Kind),
		Level:     entry.Level,
		List:      entry.ListName,
		Message:   entry.Message,
		When:      humanize.Time(entry.Timestamp),
		Timestamp: entry.Timestamp,
	}
}

// ToActivityFeedView converts the most recent entries of a log holding total entries.
func (p *ActivityPresenter) ToActivityFeedView(entries []events.ActivityEntry, total int) ui.ActivityFeedView {
	views := make([]ui.ActivityEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, p.ToActivityView(e))
	}
	return ui.ActivityFeedView{Entries: views, Total: total}
}

// FormatActivityNotification renders an entry as toast HTML for the event stream.
func (p *ActivityPresenter) FormatActivityNotification(entry events.ActivityEntry) (string, error) {
	component := ui.ActivityToast(p.ToActivityView(entry))

	var buf strings.Builder
	if err := component.Render(context.Background(), &buf); err != nil {
		return "", err
	}
	// SSE data lines must not contain raw newlines.
	return strings.ReplaceAll(buf.String(), "\n", " "), nil
}
