package http

import (
	"net/http"
	"strings"

	"github.com/siapee/siapee/pkg/httputil"
)

// codeUnsupportedMediaType is returned for bodies that are not JSON.
const codeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"

// ContentTypeJSON enforces Content-Type: application/json on write requests
// that carry a body.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if r.ContentLength != 0 && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				httputil.WriteErrorCode(w, r, http.StatusUnsupportedMediaType, codeUnsupportedMediaType,
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
