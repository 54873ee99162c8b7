package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
)

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// statusFor maps sync errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrUnknownModel), errors.Is(err, scheduler.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, directory.ErrConnection):
		return http.StatusBadGateway
	case errors.Is(err, reconcile.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// recordFields returns the mapped fields of rec by local name.
func recordFields(registry *reconcile.Registry, rec reconcile.Record) map[string]any {
	out := map[string]any{}
	attrs, err := registry.AttributeMap(rec.ModelName())
	if err != nil {
		return out
	}
	for _, pair := range attrs.Pairs() {
		if v, ok := rec.Field(pair.Local); ok {
			out[pair.Local] = v
		}
	}
	return out
}

// queryParams turns a query string into search params. Repeated keys become
// a list matching any of the values.
func queryParams(r *http.Request) map[string]any {
	params := map[string]any{}
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			params[key] = values[0]
		} else {
			params[key] = values
		}
	}
	return params
}
