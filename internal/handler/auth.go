package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/auth"
	"github.com/iliyamo/bank-assistant/internal/queue"
	"github.com/iliyamo/bank-assistant/internal/session"
)

// AuthHandler bundles dependencies for the /api/auth endpoints.
type AuthHandler struct {
	Auth     *auth.Service
	Sessions *session.Manager
	Audit    queue.Recorder
	// ExposeResetToken returns reset tokens in the forgot-password response.
	// Only for demo deployments without an outbound mail channel.
	ExposeResetToken bool
}

func NewAuthHandler(a *auth.Service, s *session.Manager, audit queue.Recorder, exposeResetToken bool) *AuthHandler {
	if audit == nil {
		audit = queue.Discard{}
	}
	return &AuthHandler{Auth: a, Sessions: s, Audit: audit, ExposeResetToken: exposeResetToken}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type forgotReq struct {
	Username string `json:"username"`
}
type resetReq struct {
	Username    string `json:"username"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
type answerReq struct {
	Username string `json:"username"`
	Answer   string `json:"answer"`
}

type userPart struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// Login validates credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	ctx := c.Request().Context()
	res, err := h.Auth.Validate(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	_, cookies, err := h.Sessions.Login(ctx, res)
	if err != nil {
		return fail(c, err)
	}
	for _, ck := range cookies {
		c.SetCookie(ck)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Login successful",
		"user":    userPart{Username: res.Username, Role: res.Role, Name: res.Name},
	})
}

// Logout ends every session the request carries cookies for.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	ended, cookies := h.Sessions.Logout(ctx, c.Request())
	for _, ck := range cookies {
		c.SetCookie(ck)
	}
	meta := queue.MetaFrom(ctx)
	for _, s := range ended {
		log.Info().Str("username", s.UserID).Str("role", s.UserRole).Msg("logout")
		h.Audit.Record(ctx, queue.AuditEvent{
			Type:       queue.EventLogout,
			Username:   s.UserID,
			Role:       s.UserRole,
			RemoteIP:   meta.RemoteIP,
			RequestID:  meta.RequestID,
			OccurredAt: nowRFC3339(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logout successful"})
}

// Status reports whether the request carries a live session.
func (h *AuthHandler) Status(c echo.Context) error {
	s, err := h.Sessions.Resolve(c.Request().Context(), c.Request())
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"authenticated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": true,
		"user":          userPart{Username: s.UserID, Role: s.UserRole, Name: s.UserName},
	})
}

// ForgotPassword issues a reset token. The response is the same whether or
// not the username exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return badRequest(c, "Username is required")
	}

	resp := echo.Map{"success": true, "message": "If the username exists, password reset instructions have been sent."}
	token, err := h.Auth.IssueResetToken(c.Request().Context(), req.Username)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusOK, resp)
	case err != nil:
		return fail(c, err)
	}
	if h.ExposeResetToken {
		resp["reset_token"] = token
		resp["username"] = req.Username
	}
	return c.JSON(http.StatusOK, resp)
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Token = strings.TrimSpace(req.Token)
	if err := h.Auth.ResetPassword(c.Request().Context(), req.Username, req.Token, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password has been reset successfully"})
}

// SecurityQuestion returns the user's security question. Unknown users get
// a generic question.
func (h *AuthHandler) SecurityQuestion(c echo.Context) error {
	username := strings.TrimSpace(c.QueryParam("username"))
	if username == "" {
		return badRequest(c, "Username is required")
	}
	q, err := h.Auth.SecurityQuestion(c.Request().Context(), username)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "username": username, "security_question": q})
}

// VerifySecurityQuestion checks an answer. Wrong answers and unknown users
// both get 401 "Incorrect answer".
func (h *AuthHandler) VerifySecurityQuestion(c echo.Context) error {
	var req answerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || strings.TrimSpace(req.Answer) == "" {
		return badRequest(c, "Username and answer are required")
	}
	q, err := h.Auth.VerifySecurityAnswer(c.Request().Context(), req.Username, req.Answer)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Security question verified", "security_question": q})
}
