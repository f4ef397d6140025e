package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/middleware"
	"github.com/iliyamo/bank-assistant/internal/model"
	"github.com/iliyamo/bank-assistant/internal/session"
)

// Front-end files served by the page routes.
const (
	loginFile          = "login.html"
	chatFile           = "small-bank-chat-backend.html"
	adminFile          = "admin_dashboard.html"
	loanCalculatorFile = "loan-calculator.html"
	customerProfile    = "customer_profile.html"

	// LogoFile is the bank logo in the images directory. Pages reference it
	// from the site root.
	LogoFile = "Gemini_Generated_Image_b2kiqjb2kiqjb2ki.png"
)

// PageHandler serves the HTML front end from Dir.
type PageHandler struct {
	Dir      string
	Sessions *session.Manager
}

func NewPageHandler(dir string, m *session.Manager) *PageHandler {
	return &PageHandler{Dir: dir, Sessions: m}
}

func noCache(c echo.Context) {
	h := c.Response().Header()
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

func (h *PageHandler) serve(c echo.Context, name string) error {
	path := filepath.Join(h.Dir, name)
	if _, err := os.Stat(path); err != nil {
		return c.String(http.StatusNotFound, "Page not found")
	}
	return c.File(path)
}

func home(role string) string {
	if role == model.RoleAdmin {
		return "/admin"
	}
	return middleware.DefaultPage
}

// Index redirects to the caller's home page, or to the login page.
func (h *PageHandler) Index(c echo.Context) error {
	if s, err := h.Sessions.Resolve(c.Request().Context(), c.Request()); err == nil {
		return c.Redirect(http.StatusFound, home(s.UserRole))
	}
	return c.Redirect(http.StatusFound, middleware.LoginPage)
}

// Login serves the login page unless the caller is already signed in.
func (h *PageHandler) Login(c echo.Context) error {
	if s, err := h.Sessions.Resolve(c.Request().Context(), c.Request()); err == nil {
		return c.Redirect(http.StatusFound, home(s.UserRole))
	}
	noCache(c)
	return h.serve(c, loginFile)
}

// Chat serves the chat page.
func (h *PageHandler) Chat(c echo.Context) error {
	noCache(c)
	return h.serve(c, chatFile)
}

// Admin serves the admin dashboard.
func (h *PageHandler) Admin(c echo.Context) error { return h.serve(c, adminFile) }

// LoanCalculator serves the loan calculator page.
func (h *PageHandler) LoanCalculator(c echo.Context) error { return h.serve(c, loanCalculatorFile) }

// CustomerProfile serves the profile page.
func (h *PageHandler) CustomerProfile(c echo.Context) error {
	noCache(c)
	return h.serve(c, customerProfile)
}

// Logo serves the bank logo from the images directory.
func (h *PageHandler) Logo(c echo.Context) error {
	return h.serveFrom(c, filepath.Join(h.Dir, "images"), LogoFile)
}

// Asset returns a handler serving files of the front-end subdirectory dir by
// the :file path parameter.
func (h *PageHandler) Asset(dir string) echo.HandlerFunc {
	root := filepath.Join(h.Dir, dir)
	return func(c echo.Context) error {
		name := filepath.Base(filepath.Clean("/" + c.Param("file")))
		if name == "/" || name == "." {
			return c.String(http.StatusNotFound, "Not found")
		}
		return h.serveFrom(c, root, name)
	}
}

func (h *PageHandler) serveFrom(c echo.Context, root, name string) error {
	path := filepath.Join(root, name)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return c.String(http.StatusNotFound, "Not found")
	}
	return c.File(path)
}
