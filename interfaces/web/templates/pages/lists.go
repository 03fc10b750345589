// Package pages renders the full pages of the list inspector.
package pages

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"spmodel/interfaces/web/presenters"
	"spmodel/interfaces/web/templates/components/core"
)

// ListIndexPage lists every configured list.
func ListIndexPage(vm presenters.ListIndexVM) templ.Component {
	return core.Layout("Lists", "lists", listIndex(vm))
}

func listIndex(vm presenters.ListIndexVM) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<h1 class="mb-1 text-xl font-semibold">Lists</h1>`)
		b.Raw(`<p class="mb-4 text-sm text-slate-500">Environment: `).Text(vm.Environment).Raw(`</p>`)
		if len(vm.Lists) == 0 {
			if err := b.Component(ctx, core.Empty("No lists configured")); err != nil {
				return err
			}
			return b.Flush(w)
		}
		b.Raw(`<table class="w-full text-sm"><thead><tr><th>Title</th><th>List ID</th><th>Fields</th><th>Queries</th><th>Cached</th><th>Updated</th></tr></thead><tbody>`)
		for _, l := range vm.Lists {
			b.Raw(`<tr class="border-t"><td><a class="text-blue-700" href="`).Text(core.Path("lists", l.Name, "items")).Raw(`">`).Text(l.Title).Raw(`</a></td>`)
			b.Raw(`<td><code>`).Text(l.ListID).Raw(`</code></td>`)
			b.Raw(`<td><a href="`).Text(core.Path("lists", l.Name, "fields")).Raw(`">`, strconv.Itoa(l.FieldCount), `</a></td>`)
			b.Raw(`<td>`)
			for i, q := range l.Queries {
				if i > 0 {
					b.Raw(", ")
				}
				b.Raw(`<a href="`).Text(core.Path("lists", l.Name, "items") + "?query=" + url.QueryEscape(q)).Raw(`">`).Text(q).Raw(`</a>`)
			}
			b.Raw(`</td><td>`, strconv.Itoa(l.CachedItems), `</td><td>`).Text(l.LastServerUpdate).Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
		return b.Flush(w)
	})
}

// ItemsPage renders the item table of a query inside the page shell.
func ItemsPage(vm presenters.ItemTableVM) templ.Component {
	return core.Layout(vm.List, "lists", ItemsTable(vm))
}

// ItemsTable renders only the item table; used for partial updates.
func ItemsTable(vm presenters.ItemTableVM) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<section id="items">`)
		b.Raw(`<h1 class="mb-1 text-xl font-semibold">`).Text(vm.List).Raw(` <span class="text-slate-500">`).Text(vm.Query).Raw(`</span></h1>`)
		m := vm.Metrics
		b.Raw(`<p class="mb-4 text-sm text-slate-500">`, strconv.Itoa(vm.Total), ` items · `,
			strconv.Itoa(m.NetworkCalls), ` calls · `, strconv.Itoa(m.Coalesced), ` coalesced · `,
			strconv.Itoa(m.StorageHits), ` restored · avg `).Text(m.AverageRoundTrip)
		if m.LastRun != "" {
			b.Raw(` · last run `).Text(m.LastRun)
		}
		b.Raw(`</p>`)
		if len(vm.Rows) == 0 {
			if err := b.Component(ctx, core.Empty("The query returned no items")); err != nil {
				return err
			}
			b.Raw(`</section>`)
			return b.Flush(w)
		}
		b.Raw(`<table class="w-full text-sm"><thead><tr><th>ID</th>`)
		for _, c := range vm.Columns {
			b.Raw(`<th data-type="`).Text(c.Type).Raw(`">`).Text(c.DisplayName).Raw(`</th>`)
		}
		b.Raw(`</tr></thead><tbody>`)
		for _, row := range vm.Rows {
			id := strconv.Itoa(row.ID)
			b.Raw(`<tr class="border-t"><td><a class="text-blue-700" href="`).Text(core.Path("lists", vm.List, "items", id)).Raw(`">`, id, `</a></td>`)
			for _, cell := range row.Cells {
				b.Raw(`<td>`).Text(cell).Raw(`</td>`)
			}
			b.Raw(`</tr>`)
		}
		b.Raw(`</tbody></table></section>`)
		return b.Flush(w)
	})
}

// ItemPage renders every field of one item.
func ItemPage(vm presenters.ItemDetailVM) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		id := strconv.Itoa(vm.ID)
		b.Raw(`<h1 class="mb-1 text-xl font-semibold">`).Text(vm.List).Raw(` #`, id, `</h1>`)
		if vm.FileRef != "" {
			b.Raw(`<p class="text-sm text-slate-500">`).Text(vm.FileRef).Raw(`</p>`)
		}
		var flags []string
		if vm.CanEdit {
			flags = append(flags, "editable")
		}
		if vm.CanDelete {
			flags = append(flags, "deletable")
		}
		if !vm.Valid {
			flags = append(flags, "invalid")
		}
		b.Raw(`<p class="mb-4 text-sm">`).Text(strings.Join(flags, " · ")).Raw(` <a class="text-blue-700" href="`).
			Text(core.Path("lists", vm.List, "items", id, "history")).Raw(`">Version history</a></p>`)
		b.Raw(`<dl class="grid grid-cols-3 gap-2 text-sm">`)
		for _, f := range vm.Fields {
			b.Raw(`<dt class="font-medium" title="`).Text(f.Name).Raw(`">`).Text(f.DisplayName).Raw(`</dt><dd class="col-span-2">`).Text(f.Formatted).Raw(`</dd>`)
		}
		b.Raw(`</dl>`)
		return b.Flush(w)
	})
	return core.Layout(vm.List, "lists", body)
}

// HistoryPage renders the field changes of every version, newest first.
func HistoryPage(vm presenters.HistoryVM) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<h1 class="mb-1 text-xl font-semibold">`).Text(vm.List).Raw(` #`, strconv.Itoa(vm.ItemID), ` history</h1>`)
		b.Raw(`<p class="mb-4 text-sm text-slate-500">`, strconv.Itoa(vm.SignificantVersions), ` of `, strconv.Itoa(len(vm.Versions)), ` versions changed the selected fields</p>`)
		for _, v := range vm.Versions {
			if len(v.Changes) == 0 {
				continue
			}
			b.Raw(`<article class="mb-3 rounded border bg-white p-3"><header class="text-sm font-medium">Version `, strconv.Itoa(v.Version))
			if v.Editor != "" {
				b.Raw(` by `).Text(v.Editor)
			}
			if v.Modified != "" {
				b.Raw(` on `).Text(v.Modified)
			}
			b.Raw(`</header><ul class="text-sm">`)
			for _, c := range v.Changes {
				b.Raw(`<li><span class="font-medium">`).Text(c.DisplayName).Raw(`</span>: <del>`).Text(c.Before).Raw(`</del> → <ins>`).Text(c.After).Raw(`</ins></li>`)
			}
			b.Raw(`</ul></article>`)
		}
		return b.Flush(w)
	})
	return core.Layout(vm.List, "lists", body)
}

// FieldsPage renders the field definitions of a list.
func FieldsPage(vm presenters.FieldsVM) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b core.Builder
		b.Raw(`<h1 class="mb-1 text-xl font-semibold">`).Text(vm.List).Raw(` fields</h1>`)
		if vm.MetadataExtended {
			b.Raw(`<p class="mb-4 text-sm text-slate-500">Extended with server metadata</p>`)
		}
		b.Raw(`<table class="w-full text-sm"><thead><tr><th>Mapped name</th><th>Static name</th><th>Type</th><th>Display name</th><th>Flags</th><th>Choices</th></tr></thead><tbody>`)
		for _, f := range vm.Fields {
			var flags []string
			if f.Required {
				flags = append(flags, "required")
			}
			if f.ReadOnly {
				flags = append(flags, "read-only")
			}
			b.Raw(`<tr class="border-t"><td><code>`).Text(f.MappedName).Raw(`</code></td><td><code>`).Text(f.WireName).Raw(`</code></td>`)
			b.Raw(`<td>`).Text(f.Type).Raw(`</td><td title="`).Text(f.Description).Raw(`">`).Text(f.DisplayName).Raw(`</td>`)
			b.Raw(`<td>`).Text(strings.Join(flags, ", ")).Raw(`</td><td>`).Text(strings.Join(f.Choices, ", ")).Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
		return b.Flush(w)
	})
	return core.Layout(vm.List, "lists", body)
}
