package uploadroute

import (
	"net/http"
	"net/url"
)

// Request is the plain, framework-neutral view of an inbound HTTP request.
// Adapters convert host request types to this contract; middleware and
// hooks see it so they can read auth headers, cookies, and query params
// without depending on any framework.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is the plain, framework-neutral result of handling a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
