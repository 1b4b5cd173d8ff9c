// Package admin routes settings-screen requests. A screen is identified by
// the page and module query parameters; handlers are registered per
// (method, page, module, action) and the action is read from form-action on
// POST and from the action query parameter on GET.
package admin

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/labstack/echo/v4"
)

// ModulesSettingsPage is the page hosting every module settings screen.
const ModulesSettingsPage = "pp-modules-settings"

// ErrNotHandled is returned by a handler whose request guard does not match.
// The router then renders the screen view as if no handler existed.
var ErrNotHandled = errors.New("admin: request not handled")

// Asset is a script or style enqueued on a screen.
type Asset struct {
	Handle string
	Kind   string // "script" or "style"
	URL    string
}

type screen struct{ page, module string }

type route struct {
	method string
	screen
	action string
}

// Router dispatches admin requests to module handlers.
type Router struct {
	base string

	mu       sync.RWMutex
	handlers map[route]echo.HandlerFunc
	views    map[screen]echo.HandlerFunc
	assets   map[screen][]Asset
}

// NewRouter returns a router whose links point at base (e.g. "/admin").
func NewRouter(base string) *Router {
	return &Router{
		base:     base,
		handlers: map[route]echo.HandlerFunc{},
		views:    map[screen]echo.HandlerFunc{},
		assets:   map[screen][]Asset{},
	}
}

// Handle registers h for method requests carrying action on a screen.
func (r *Router) Handle(method, page, module, action string, h echo.HandlerFunc) {
	r.mu.Lock()
	r.handlers[route{method: method, screen: screen{page, module}, action: action}] = h
	r.mu.Unlock()
}

// View registers the renderer of a screen.
func (r *Router) View(page, module string, h echo.HandlerFunc) {
	r.mu.Lock()
	r.views[screen{page, module}] = h
	r.mu.Unlock()
}

// Enqueue adds assets to a screen.
func (r *Router) Enqueue(page, module string, assets ...Asset) {
	r.mu.Lock()
	key := screen{page, module}
	r.assets[key] = append(r.assets[key], assets...)
	r.mu.Unlock()
}

// Assets returns the assets enqueued on a screen; other screens get none.
func (r *Router) Assets(page, module string) []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Asset(nil), r.assets[screen{page, module}]...)
}

// Serve is the echo handler for the admin endpoint.
func (r *Router) Serve(c echo.Context) error {
	req := c.Request()
	key := screen{c.QueryParam("page"), c.QueryParam("module")}
	action := c.QueryParam("action")
	if req.Method == http.MethodPost {
		action = c.FormValue("form-action")
	}

	r.mu.RLock()
	h, hasHandler := r.handlers[route{method: req.Method, screen: key, action: action}]
	view, hasView := r.views[key]
	r.mu.RUnlock()

	if hasHandler {
		err := h(c)
		if !errors.Is(err, ErrNotHandled) {
			return err
		}
	}
	if !hasView {
		return c.String(http.StatusNotFound, "Sorry, you are not allowed to access this page.")
	}
	return view(c)
}

// Link builds a URL to the admin endpoint with args as query parameters.
// Missing page defaults to the modules settings page.
func (r *Router) Link(args map[string]string) string {
	q := url.Values{}
	if _, ok := args["page"]; !ok {
		q.Set("page", ModulesSettingsPage)
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, args[k])
	}
	return r.base + "?" + q.Encode()
}
