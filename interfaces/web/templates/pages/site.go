package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"spmodel/interfaces/web/presenters"
	"spmodel/interfaces/web/templates/components/core"
	"spmodel/interfaces/web/templates/components/ui"
)

// ProfilePage renders the current user and their groups.
func ProfilePage(vm presenters.ProfileVM) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<h1 class="mb-1 text-xl font-semibold">`).Text(vm.DisplayName).Raw(`</h1>`)
		b.Raw(`<p class="mb-4 text-sm text-slate-500">`).Text(vm.AccountName).Raw(`</p>`)
		b.Raw(`<dl class="grid grid-cols-3 gap-2 text-sm">`)
		for _, row := range [][2]string{{"Email", vm.Email}, {"Title", vm.Title}, {"Department", vm.Department}} {
			if row[1] == "" {
				continue
			}
			b.Raw(`<dt class="font-medium">`, row[0], `</dt><dd class="col-span-2">`).Text(row[1]).Raw(`</dd>`)
		}
		b.Raw(`</dl><h2 class="mt-6 font-semibold">Groups (`, strconv.Itoa(len(vm.Groups)), `)</h2><ul class="text-sm">`)
		for _, g := range vm.Groups {
			b.Raw(`<li>`).Text(g).Raw(`</li>`)
		}
		b.Raw(`</ul>`)
		return b.Flush(w)
	})
	return core.Layout("Current user", "me", body)
}

// ActivityPage renders the activity feed.
func ActivityPage(feed ui.ActivityFeedView) templ.Component {
	return core.Layout("Activity", "activity", ui.ActivityFeed(feed))
}

// ErrorPage renders an error message with its HTTP status.
func ErrorPage(status int, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<div class="rounded border border-red-300 bg-red-50 p-4 text-red-800"><h1 class="font-semibold">`, strconv.Itoa(status), `</h1><p>`).
			Text(message).Raw(`</p></div>`)
		return b.Flush(w)
	})
	return core.Layout("Error", "", body)
}
