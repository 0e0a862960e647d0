package handler

import (
	"log/slog"
	"net/http"

	"aegis/internal/delivery/http/middleware"
	"aegis/internal/delivery/http/response"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SessionHandler holds dependencies for session-management handlers. All of
// its routes run behind the bearer-token middleware.
type SessionHandler struct {
	uc     usecase.SessionUsecase
	logger *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler, injected by Fx.
func NewSessionHandler(uc usecase.SessionUsecase, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{uc: uc, logger: logger}
}

// caller extracts the identity placed on the context by the auth middleware.
func caller(c echo.Context) (tenantID, clientID, userID string, err error) {
	tenantID, _ = c.Get(middleware.KeyTenantID).(string)
	clientID, _ = c.Get(middleware.KeyClientID).(string)
	userID, _ = c.Get(middleware.KeyUserID).(string)
	if tenantID == "" || userID == "" {
		return "", "", "", domainerrors.ErrUnauthorized.WrapMessage("caller identity missing")
	}

	return tenantID, clientID, userID, nil
}

// ListSessions returns the caller's active sessions.
func (h *SessionHandler) ListSessions(c echo.Context) error {
	tenant, client, user, err := caller(c)
	if err != nil {
		return err
	}
	if queryClient := c.QueryParam("client_id"); queryClient != "" {
		client = queryClient
	}

	sessions, err := h.uc.ListSessions(c.Request().Context(), tenant, client, user)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, sessions, "Sessions retrieved successfully")
}

// RevokeSession deactivates a single session owned by the caller.
func (h *SessionHandler) RevokeSession(c echo.Context) error {
	tenant, client, user, err := caller(c)
	if err != nil {
		return err
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrValidationFailed.WrapMessage("session id must be a UUID")
	}

	if err := h.uc.RevokeSession(c.Request().Context(), tenant, client, user, sessionID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Session revoked")
}

// RevokeAllSessions deactivates every active session of the caller.
func (h *SessionHandler) RevokeAllSessions(c echo.Context) error {
	tenant, client, user, err := caller(c)
	if err != nil {
		return err
	}

	if err := h.uc.RevokeAllSessions(c.Request().Context(), tenant, client, user); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "All sessions revoked")
}
