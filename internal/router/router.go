// Package router holds the single route table of the server and registers
// it on an echo instance.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/handler"
	"github.com/iliyamo/bank-assistant/internal/middleware"
	"github.com/iliyamo/bank-assistant/internal/repository"
	"github.com/iliyamo/bank-assistant/internal/session"
)

// Access is the guard placed in front of a route.
type Access int

const (
	Public Access = iota
	SessionRequired
	AdminRequired
)

func (a Access) String() string {
	switch a {
	case SessionRequired:
		return "session"
	case AdminRequired:
		return "admin"
	default:
		return "public"
	}
}

// Route is one entry of the route table.
type Route struct {
	Method      string
	Path        string
	Description string
	Access      Access
	Page        bool // HTML route: guards redirect instead of answering JSON
	Limited     bool // behind the rate limiter
	Cached      bool // behind the response cache
	Handler     echo.HandlerFunc
}

// Deps are the handlers and shared middleware the route table binds.
type Deps struct {
	Store     repository.CustomerStore
	Sessions  *session.Manager
	Auth      *handler.AuthHandler
	Chat      *handler.ChatHandler
	Customer  *handler.CustomerHandler
	Admin     *handler.AdminHandler
	Pages     *handler.PageHandler
	RateLimit echo.MiddlewareFunc // optional
	Cache     echo.MiddlewareFunc // optional
}

// Setup builds the route table from d and registers it on e together with
// the JSON error handler.
func Setup(e *echo.Echo, d Deps) ([]Route, error) {
	e.HTTPErrorHandler = handler.ErrorHandler
	var routes []Route
	utility := handler.NewUtilityHandler(d.Store, d.Sessions, func() []handler.Endpoint { return Endpoints(routes) })
	routes = Table(d, utility)
	if err := Register(e, d, routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// Register adds routes to e behind the guards their Access asks for. A
// METHOD path pair appearing twice is an error and nothing is registered.
func Register(e *echo.Echo, d Deps, routes []Route) error {
	if err := checkDuplicates(routes); err != nil {
		return err
	}
	for _, r := range routes {
		e.Add(r.Method, r.Path, r.Handler, chain(d, r)...)
	}
	return nil
}

func checkDuplicates(routes []Route) error {
	seen := make(map[string]bool, len(routes))
	var dups []string
	for _, r := range routes {
		key := r.Method + " " + r.Path
		if seen[key] {
			dups = append(dups, key)
		}
		seen[key] = true
	}
	if len(dups) > 0 {
		return fmt.Errorf("duplicate routes: %s", strings.Join(dups, ", "))
	}
	return nil
}

func chain(d Deps, r Route) []echo.MiddlewareFunc {
	mode := middleware.RespondJSON
	if r.Page {
		mode = middleware.RedirectPage
	}
	var mws []echo.MiddlewareFunc
	if r.Limited && d.RateLimit != nil {
		mws = append(mws, d.RateLimit)
	}
	switch r.Access {
	case SessionRequired:
		mws = append(mws, middleware.RequireSession(d.Sessions, mode))
	case AdminRequired:
		mws = append(mws, middleware.RequireSession(d.Sessions, mode), middleware.RequireAdmin(mode))
	}
	if r.Cached && d.Cache != nil {
		mws = append(mws, d.Cache)
	}
	return mws
}

// Endpoints lists the API routes (pages excluded) sorted by path.
func Endpoints(routes []Route) []handler.Endpoint {
	var out []handler.Endpoint
	for _, r := range routes {
		if r.Page {
			continue
		}
		out = append(out, handler.Endpoint{Method: r.Method, Path: r.Path, Description: r.Description, Access: r.Access.String()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
