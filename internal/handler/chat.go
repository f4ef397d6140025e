package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/chat"
	"github.com/iliyamo/bank-assistant/internal/middleware"
)

// ChatHandler serves the assistant endpoints.
type ChatHandler struct {
	Chat *chat.Client
}

func NewChatHandler(c *chat.Client) *ChatHandler { return &ChatHandler{Chat: c} }

type chatReq struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history"`
}

// Send forwards a message, personalised with the caller's record snapshot.
func (h *ChatHandler) Send(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest(c, "Message is required")
	}
	s, _ := middleware.CurrentSession(c)
	reply, err := h.Chat.Send(c.Request().Context(), req.Message, req.History, s.CustomerData)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, reply)
}

// TestConnection pings the text generation endpoint.
func (h *ChatHandler) TestConnection(c echo.Context) error {
	if err := h.Chat.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":  "error",
			"error":   "Connection to the chat service failed",
			"message": "Connection to the chat service failed",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "Connection to the chat service successful",
		"model":   h.Chat.Model(),
	})
}
