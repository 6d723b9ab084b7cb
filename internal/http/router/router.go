// Package router dispatches requests over a fixed table of routes. Rows are
// checked in order: exact paths, then the /img/ prefix, then short ids, then
// media lookup for everything else.
package router

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/princekumarofficial/imgbed/internal/cache"
	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/auth"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/media"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/pages"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/shortlink"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/stats"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/upload"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/usage"
	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/metrics"
	shortlinkService "github.com/princekumarofficial/imgbed/internal/services/shortlink"
	uploadService "github.com/princekumarofficial/imgbed/internal/services/upload"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/utils/password"
)

const imgPrefix = "/img/"

// Deps are the collaborators the routes are built from. Cache, Limits and
// Metrics may be nil.
type Deps struct {
	Config     *config.Config
	Store      storage.Storage
	Blobs      storage.BlobStore
	Cache      cache.ResponseCache
	Usage      usage.UsageSource
	Uploads    *uploadService.Service
	ShortLinks *shortlinkService.Service
	Checker    *password.Checker
	Renderer   *pages.Renderer
	Limits     *middleware.RateLimitConfig
	Metrics    *metrics.Metrics
}

type route struct {
	name    string
	match   func(path string) bool
	policy  middleware.AuthPolicy
	limit   string
	handler http.Handler
}

type Router struct {
	routes []route
}

// New builds the routing table. The returned handler still needs the
// request-scoped middleware, see Handler.
func New(d Deps) *Router {
	cfg := d.Config
	respCache := d.Cache
	if respCache == nil {
		respCache = cache.Nop{}
	}

	sessionPassword := ""
	if cfg.AuthEnabled() {
		sessionPassword = cfg.Auth.Password
	}

	mediaHandlers := media.NewMediaHandlers(d.Store, d.Blobs, respCache, cfg.HTTPServer.PublicScheme, cfg.Cache.TTL, cfg.Cache.NotFoundTTL)
	fetch := mediaHandlers.Fetch()

	rows := []route{
		{name: "login", match: exact("/login"), handler: auth.Login(d.Renderer, d.Checker, sessionPassword)},
		{name: "logout", match: exact("/logout"), handler: auth.Logout()},
		{name: "root", match: exact("/"), policy: middleware.PolicyRedirect,
			handler: pages.Root(d.Renderer, respCache, cfg.HTTPServer.PublicScheme, cfg.Cache.TTL, cfg.Upload.MaxSizeMB)},
		{name: "upload", match: exact("/upload"), policy: middleware.PolicyJSON, limit: middleware.ActionUpload,
			handler: upload.Upload(d.Uploads, d.Metrics)},
		{name: "r2_usage", match: exact("/r2-usage"), handler: usage.Usage(d.Usage)},
		{name: "delete_images", match: exact("/delete-images"), policy: middleware.PolicyJSON,
			handler: mediaHandlers.DeleteImages()},
		{name: "shorten", match: exact("/shorten"), policy: middleware.PolicyJSON, limit: middleware.ActionShorten,
			handler: shortlink.Shorten(d.ShortLinks)},
		{name: "stats", match: exact("/stats"), handler: stats.Stats(d.Store)},
		{name: "images", match: exact("/images"), policy: middleware.PolicyRedirect,
			handler: pages.Images(d.Renderer, d.Store)},
		{name: "urls", match: exact("/urls"), policy: middleware.PolicyRedirect,
			handler: pages.URLs(d.Renderer, d.Store, d.ShortLinks.ShortURL)},
		{name: "img", match: prefix(imgPrefix), handler: fetch},
		{name: "short_link", match: IsShortIDPath, handler: shortlink.Resolve(d.ShortLinks, fetch, d.Metrics)},
		{name: "media", match: always, handler: fetch},
	}

	rt := &Router{routes: make([]route, 0, len(rows))}
	for _, row := range rows {
		var h http.Handler = row.handler
		if row.limit != "" {
			h = d.Limits.RateLimitMiddleware(row.limit)(h)
		}
		h = middleware.SessionAuth(row.policy, sessionPassword)(h)
		h = middleware.Instrument(d.Metrics, row.name)(h)
		row.handler = h
		rt.routes = append(rt.routes, row)
	}

	return rt
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, row := range rt.routes {
		if row.match(r.URL.Path) {
			row.handler.ServeHTTP(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

// Handler wraps the router with the middleware every request passes through.
func (rt *Router) Handler() http.Handler {
	return middleware.Recover(middleware.RequestID(middleware.RequestLogger(rt)))
}

// IsShortIDPath reports whether path is short enough to be a short id. The
// id is not validated here; unknown ids fall through to media lookup.
func IsShortIDPath(path string) bool {
	id := strings.TrimPrefix(path, "/")
	return id != "" && utf8.RuneCountInString(id) <= shortlinkService.MaxIDLength
}

func exact(p string) func(string) bool {
	return func(path string) bool { return path == p }
}

func prefix(p string) func(string) bool {
	return func(path string) bool { return strings.HasPrefix(path, p) }
}

func always(string) bool { return true }
