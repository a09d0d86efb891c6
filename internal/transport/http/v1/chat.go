package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"helmsman/internal/domain"
)

// Chat submits one query to the pipeline.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.ReceivedAt = time.Now().UTC()

	resp := h.service.Submit(c.Request().Context(), req)
	return c.JSON(http.StatusOK, resp)
}

// GetHistory retrieves the ordered messages of a session.
// GET /v1/sessions/:session_id/history
func (h *Handler) GetHistory(c echo.Context) error {
	sessionID := c.Param("session_id")

	history, err := h.service.History(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"history":    history,
	})
}

// ClearSession removes a session and its history. Clearing an unknown
// session succeeds.
// DELETE /v1/sessions/:session_id
func (h *Handler) ClearSession(c echo.Context) error {
	sessionID := c.Param("session_id")

	if err := h.service.Clear(c.Request().Context(), sessionID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"session_id": sessionID,
	})
}
