// Package requesturl rebuilds the public URL a client requested.
package requesturl

import "net/http"

// Literal returns scheme://host/path?query as seen by the client. Media
// records and cached responses are keyed on this string.
func Literal(r *http.Request, scheme string) string {
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
