package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spmodel/domain/listmodel"
	"spmodel/interfaces/web/presenters"
	"spmodel/interfaces/web/templates/pages"
	"spmodel/logging"
)

// ListCatalog is the list lookup the handlers depend on.
type ListCatalog interface {
	Names() []string
	Model(name string) (*listmodel.Model, error)
	DefaultQuery(list string) string
	Items(ctx context.Context, list, query string) ([]*listmodel.ListItem, error)
}

// ListHandlers handles list-related HTTP endpoints.
// Orchestrates between the list catalog and presentation logic.
type ListHandlers struct {
	catalog       ListCatalog
	environment   string
	listPresenter presenters.ListPresenterInterface
	logger        *logging.Logger
}

// NewListHandlers creates a new list handlers instance with required dependencies.
func NewListHandlers(catalog ListCatalog, environment string, listPresenter presenters.ListPresenterInterface) *ListHandlers {
	return &ListHandlers{
		catalog:       catalog,
		environment:   environment,
		listPresenter: listPresenter,
		logger:        logging.Default().WithComponent("list_handlers"),
	}
}

// Lists renders every configured list.
func (h *ListHandlers) Lists(w http.ResponseWriter, r *http.Request) {
	names := h.catalog.Names()
	models := make([]*listmodel.Model, 0, len(names))
	for _, name := range names {
		m, err := h.catalog.Model(name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		models = append(models, m)
	}

	vm := h.listPresenter.ToListIndexViewModel(h.environment, models)
	renderView(w, r, vm, pages.ListIndexPage(*vm))
}

// Items executes a query of a list and renders its items. The query is chosen
// with ?query=; HTMX partial requests receive only the table.
func (h *ListHandlers) Items(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list := chi.URLParam(r, "list")

	m, err := h.catalog.Model(list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	queryName := r.URL.Query().Get("query")
	if queryName == "" {
		queryName = h.catalog.DefaultQuery(list)
	}

	items, err := h.catalog.Items(ctx, list, queryName)
	if err != nil {
		h.logger.WithContext(ctx).Error("Query failed", "list", list, "query", queryName, "error", err)
		writeError(w, r, err)
		return
	}

	vm := h.listPresenter.ToItemTableViewModel(m, m.GetQuery(queryName), items)
	if !WantsJSON(r) && IsHTMXPartialRequest(r) {
		RenderResponse(ctx, w, r, pages.ItemsTable(*vm))
		return
	}
	renderView(w, r, vm, pages.ItemsPage(*vm))
}

// Item renders one item. Cached items are served without a request unless
// ?refresh=true is given.
func (h *ListHandlers) Item(w http.ResponseWriter, r *http.Request) {
	m, item, ok := h.resolveItem(w, r)
	if !ok {
		return
	}
	vm := h.listPresenter.ToItemDetailViewModel(m, item)
	renderView(w, r, vm, pages.ItemPage(*vm))
}

// History renders the version diffs of an item. ?fields= limits the compared
// fields to a comma separated list of mapped names.
func (h *ListHandlers) History(w http.ResponseWriter, r *http.Request) {
	m, item, ok := h.resolveItem(w, r)
	if !ok {
		return
	}

	fields := presenters.ParseFieldList(r.URL.Query().Get("fields"))
	summary, err := item.GetChangeSummary(r.Context(), fields...)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Version history failed", "list", m.Definition().Name(), "item_id", item.ID, "error", err)
		writeError(w, r, err)
		return
	}

	vm := h.listPresenter.ToHistoryViewModel(m.Definition().Name(), summary)
	renderView(w, r, vm, pages.HistoryPage(*vm))
}

// Fields renders the field definitions of a list, extended with server
// metadata when ?extend=true is given.
func (h *ListHandlers) Fields(w http.ResponseWriter, r *http.Request) {
	m, err := h.catalog.Model(chi.URLParam(r, "list"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if boolQuery(r, "extend") {
		if _, err := m.ExtendListMetadata(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}

	vm := h.listPresenter.ToFieldsViewModel(m)
	renderView(w, r, vm, pages.FieldsPage(*vm))
}

func (h *ListHandlers) resolveItem(w http.ResponseWriter, r *http.Request) (*listmodel.Model, *listmodel.ListItem, bool) {
	m, err := h.catalog.Model(chi.URLParam(r, "list"))
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	id, err := itemIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}

	if !boolQuery(r, "refresh") {
		if item, ok := m.GetCachedEntity(id); ok {
			return m, item, true
		}
	}
	item, err := m.GetListItemByID(r.Context(), id, listmodel.QueryOptions{})
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	return m, item, true
}
