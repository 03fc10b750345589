package ui

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"spmodel/interfaces/web/templates/components/core"
)

// ActivityToast renders a single entry as a toast pushed over the event stream.
func ActivityToast(entry ActivityEntryView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<div class="rounded border px-4 py-2 shadow `, levelClass(entry.Level), `" data-kind="`).Text(entry.Kind).Raw(`">`)
		b.Raw(`<strong>`).Text(entry.List).Raw(`</strong> `).Text(entry.Message)
		b.Raw(`</div>`)
		return b.Flush(w)
	})
}

// ActivityFeed renders the activity table.
func ActivityFeed(feed ActivityFeedView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<h1 class="mb-4 text-xl font-semibold">Activity</h1>`)
		if len(feed.Entries) == 0 {
			if err := b.Component(ctx, core.Empty("No activity recorded yet")); err != nil {
				return err
			}
			return b.Flush(w)
		}
		b.Raw(`<p class="mb-2 text-sm text-slate-500">Showing `, strconv.Itoa(len(feed.Entries)), ` of `, strconv.Itoa(feed.Total), `</p>`)
		b.Raw(`<table class="w-full text-sm"><thead><tr><th>When</th><th>List</th><th>Kind</th><th>Message</th></tr></thead><tbody>`)
		for _, e := range feed.Entries {
			b.Raw(`<tr class="border-t `, levelClass(e.Level), `">`)
			b.Raw(`<td title="`).Text(e.Timestamp.Format("2006-01-02 15:04:05")).Raw(`">`).Text(e.When).Raw(`</td>`)
			b.Raw(`<td>`).Text(e.List).Raw(`</td><td>`).Text(e.Kind).Raw(`</td><td>`).Text(e.Message).Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
		return b.Flush(w)
	})
}
