package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// wrap returns a writer that exposes the response status and size. Writers
// already wrapped by an outer middleware are reused so the chain shares one.
func wrap(w http.ResponseWriter, r *http.Request) chimiddleware.WrapResponseWriter {
	if ww, ok := w.(chimiddleware.WrapResponseWriter); ok {
		return ww
	}
	return chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
}

// statusOf reports the written status. Handlers that never call
// WriteHeader or Write get net/http's implicit 200.
func statusOf(ww chimiddleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
