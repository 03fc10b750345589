package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spmodel/application"
	"spmodel/domain/listmodel"
	"spmodel/interfaces/web/templates/pages"
	"spmodel/logging"
)

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// statusForError maps model and service errors onto HTTP status codes.
func statusForError(err error) int {
	var serviceErr *listmodel.ServiceError
	var decodeErr *listmodel.DecodeError
	switch {
	case errors.Is(err, application.ErrListNotFound),
		errors.Is(err, listmodel.ErrItemNotFound),
		errors.Is(err, listmodel.ErrQueryNotFound):
		return http.StatusNotFound
	case errors.Is(err, listmodel.ErrFieldNotFound),
		errors.Is(err, listmodel.ErrInvalidEntity),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &serviceErr), errors.As(err, &decodeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// writeError renders err as JSON or as an error page.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if WantsJSON(r) {
		RenderJSON(w, status, errorResponse{Status: status, Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pages.ErrorPage(status, err.Error()).Render(r.Context(), w)
}

// itemIDParam parses the {id} URL parameter.
func itemIDParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid item id %q", errBadRequest, raw)
	}
	return id, nil
}

// boolQuery reads a boolean query parameter; anything but true/1 is false.
func boolQuery(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// requestLogContext exposes the chi request id to loggers built with WithContext.
func requestLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.ContextWithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
