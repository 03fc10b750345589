package core

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

func isActive(active, name string) string {
	if active == name {
		return "bg-blue-50 text-blue-700 border-b-2 border-blue-600 font-medium"
	}
	return "text-slate-600 hover:text-slate-900"
}

func isSelected(active, name string) string {
	if active == name {
		return "true"
	}
	return "false"
}

// Builder accumulates escaped markup for hand written components.
type Builder struct {
	strings.Builder
}

// Raw writes trusted markup.
func (b *Builder) Raw(parts ...string) *Builder {
	for _, p := range parts {
		b.WriteString(p)
	}
	return b
}

// Text writes s HTML escaped.
func (b *Builder) Text(s string) *Builder {
	b.WriteString(templ.EscapeString(s))
	return b
}

// Component renders c into the builder.
func (b *Builder) Component(ctx context.Context, c templ.Component) error {
	return c.Render(ctx, &b.Builder)
}

// Flush writes the accumulated markup to w.
func (b *Builder) Flush(w io.Writer) error {
	_, err := io.WriteString(w, b.String())
	return err
}

// Path joins escaped path segments into an absolute URL path.
func Path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}
