package middleware

import (
	"net/http"
	"net/url"

	"github.com/princekumarofficial/imgbed/internal/utils/response"
	"github.com/princekumarofficial/imgbed/internal/utils/session"
)

// AuthPolicy says how a route reacts to a request without a valid session.
type AuthPolicy int

const (
	// PolicyNone lets every request through.
	PolicyNone AuthPolicy = iota
	// PolicyRedirect sends page requests to the login form.
	PolicyRedirect
	// PolicyJSON answers API requests with 401.
	PolicyJSON
)

func (p AuthPolicy) String() string {
	switch p {
	case PolicyRedirect:
		return "redirect"
	case PolicyJSON:
		return "json"
	default:
		return "none"
	}
}

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

// SessionAuth enforces policy using the session cookie derived from password.
// An empty password disables the check.
func SessionAuth(policy AuthPolicy, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy == PolicyNone || password == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.IsAuthenticated(r, password) {
				next.ServeHTTP(w, r)
				return
			}

			if policy == PolicyRedirect {
				http.Redirect(w, r, LoginRedirectURL(r.URL.Path), http.StatusFound)
				return
			}

			response.WriteJSON(w, http.StatusUnauthorized, response.Error("Unauthorized"))
		})
	}
}

// LoginRedirectURL returns the login URL that sends the user back to path.
func LoginRedirectURL(path string) string {
	return LoginPath + "?" + url.Values{"redirect": {path}}.Encode()
}
