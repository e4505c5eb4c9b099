package http

import "net/http"

// JSONHandler adapts a return-style handler: the value becomes a 200 envelope, the error an
// error envelope with its mapped status
func JSONHandler(fn func(*http.Request) (any, error)) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r)
		if err != nil {
			RespondError(w, r, err)
			return
		}
		RespondOK(w, r, out)
	}
}

// GetJSON mounts a return-style handler for GET
func GetJSON(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, JSONHandler(h))
}

// PostJSON mounts a return-style handler for POST; handlers read their own body if any
func PostJSON(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, JSONHandler(h))
}
