// Package handlers render provides HTTP response and HTMX utilities.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// RenderResponse renders Templ components to HTTP responses.
func RenderResponse(ctx context.Context, w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(ctx, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RenderJSON writes v as a JSON response with the given status.
func RenderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// WantsJSON reports whether the client asked for JSON through the Accept
// header or a format=json query parameter.
func WantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// renderView writes vm as JSON or page as HTML depending on the request.
func renderView(w http.ResponseWriter, r *http.Request, vm any, page templ.Component) {
	if WantsJSON(r) {
		RenderJSON(w, http.StatusOK, vm)
		return
	}
	RenderResponse(r.Context(), w, r, page)
}

// IsHTMXRequest checks if the request came from HTMX.
func IsHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// IsHTMXPartialRequest checks if this is a targeted HTMX partial update.
func IsHTMXPartialRequest(r *http.Request) bool {
	return IsHTMXRequest(r) && r.Header.Get("HX-Target") != ""
}

// GetHTMXTarget returns the HTMX target element ID.
func GetHTMXTarget(r *http.Request) string {
	target := r.Header.Get("HX-Target")
	// Remove # prefix if present
	return strings.TrimPrefix(target, "#")
}
