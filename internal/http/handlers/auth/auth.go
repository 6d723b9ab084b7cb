package auth

import (
	"net/http"
	"strings"

	"github.com/princekumarofficial/imgbed/internal/http/handlers/pages"
	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/utils/password"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
	"github.com/princekumarofficial/imgbed/internal/utils/session"
)

// Login renders the password form on GET and checks it on POST.
// @Summary Log in with the shared password
// @Tags auth
// @Accept x-www-form-urlencoded
// @Param password formData string true "Shared password"
// @Param redirect query string false "Local path to return to"
// @Success 302 "Session cookie set"
// @Failure 401 "Wrong password"
// @Router /login [post]
func Login(rn *pages.Renderer, checker *password.Checker, configured string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			rn.Render(w, http.StatusOK, "login", pages.LoginData{})
			return
		case http.MethodPost:
		default:
			response.WriteText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		if err := r.ParseForm(); err != nil {
			rn.Render(w, http.StatusBadRequest, "login", pages.LoginData{HasError: true})
			return
		}

		if !checker.Check(r.PostForm.Get("password")) {
			rn.Render(w, http.StatusUnauthorized, "login", pages.LoginData{HasError: true})
			return
		}

		http.SetCookie(w, session.NewCookie(configured))
		w.Header().Set("Location", SafeRedirect(r.URL.Query().Get("redirect")))
		w.WriteHeader(http.StatusFound)
	}
}

// Logout expires the session cookie and returns to the login page.
func Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, session.ExpiredCookie())
		w.Header().Set("Location", middleware.LoginPath)
		w.WriteHeader(http.StatusFound)
	}
}

// SafeRedirect accepts only local absolute paths so the login form cannot be
// used as an open redirect.
func SafeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
