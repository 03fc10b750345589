package core

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// NavItem is one entry of the top navigation.
type NavItem struct {
	Name  string
	Label string
	Href  string
}

var navItems = []NavItem{
	{Name: "lists", Label: "Lists", Href: "/lists"},
	{Name: "activity", Label: "Activity", Href: "/activity"},
	{Name: "me", Label: "Current user", Href: "/me"},
}

// Layout wraps body in the page shell. The activity toast region listens on
// the /events stream.
func Layout(title, active string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b Builder
		b.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`).Text(title).Raw(` | splist</title>`)
		b.Raw(`<script src="https://unpkg.com/htmx.org@2.0.4"></script>`)
		b.Raw(`<script src="https://unpkg.com/htmx-ext-sse@2.2.2/sse.js"></script>`)
		b.Raw(`<script src="https://cdn.tailwindcss.com"></script></head>`)
		b.Raw(`<body class="bg-slate-50 text-slate-900" hx-ext="sse" sse-connect="/events">`)
		b.Raw(`<nav class="flex gap-2 border-b border-slate-200 bg-white px-6" role="tablist">`)
		for _, item := range navItems {
			b.Raw(`<a role="tab" class="px-3 py-2 `, isActive(active, item.Name), `" aria-selected="`, isSelected(active, item.Name), `" href="`).
				Text(item.Href).Raw(`">`).Text(item.Label).Raw(`</a>`)
		}
		b.Raw(`</nav><main class="mx-auto max-w-6xl p-6">`)
		if body != nil {
			if err := b.Component(ctx, body); err != nil {
				return err
			}
		}
		b.Raw(`</main><div id="activity-toasts" class="fixed bottom-4 right-4 space-y-2" sse-swap="activity" hx-swap="afterbegin"></div>`)
		b.Raw(`</body></html>`)
		return b.Flush(w)
	})
}

// Empty renders a placeholder for empty tables.
func Empty(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b Builder
		b.Raw(`<p class="py-8 text-center text-slate-500">`).Text(message).Raw(`</p>`)
		return b.Flush(w)
	})
}
