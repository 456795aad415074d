package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-upload/pkg/uploadroute"
)

// maxBodyBytes caps the JSON control-plane body. File bytes never pass
// through this endpoint, so 1 MiB is generous.
const maxBodyBytes = 1 << 20

// ServeHTTP is the net/http adapter: it converts the host request to the
// plain contract, dispatches, and writes the JSON result. No business
// logic lives here.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "failed to read request body"})
		return
	}

	req := &uploadroute.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header,
		Body:   body,
	}

	status, payload := h.dispatch(r.Context(), req)
	render.Status(r, status)
	render.JSON(w, r, payload)
}

// Mount mounts the handler on a chi router at the given pattern. This is a
// convenience method for chi users.
func (h *Handler) Mount(r chi.Router, pattern string) {
	r.Get(pattern, h.ServeHTTP)
	r.Post(pattern, h.ServeHTTP)
}
