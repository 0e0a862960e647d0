// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"aegis/internal/delivery/http/response"
	"aegis/internal/domain/constants"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// deviceRequest is the device metadata block shared by sign-in and challenge
// requests.
type deviceRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	Source     string `json:"source"`
	Location   string `json:"location"`
}

// metadata resolves the request into domain device metadata; the client
// address always comes from the connection, not the body.
func (d *deviceRequest) metadata(c echo.Context) entity.DeviceMetadata {
	return entity.DeviceMetadata{
		DeviceID:   d.DeviceID,
		DeviceName: d.DeviceName,
		IP:         c.RealIP(),
		Source:     d.Source,
		Location:   d.Location,
	}
}

// tenantID extracts the mandatory tenant header.
func tenantID(c echo.Context) (string, error) {
	tenant := c.Request().Header.Get(constants.HeaderTenantID)
	if tenant == "" {
		return "", domainerrors.ErrValidationFailed.WrapMessage("tenant header is required")
	}

	return tenant, nil
}

// AuthHandler holds dependencies for sign-in handlers.
type AuthHandler struct {
	uc     usecase.SigninUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.SigninUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, logger: logger}
}

type signinRequest struct {
	ClientID   string        `json:"clientId" validate:"required"`
	Identifier string        `json:"identifier" validate:"required"`
	Secret     string        `json:"secret" validate:"required"`
	Factor     string        `json:"factor"`
	Scope      []string      `json:"scope"`
	Device     deviceRequest `json:"device"`
}

type signinResponse struct {
	SessionID string              `json:"sessionId"`
	UserID    string              `json:"userId"`
	Tokens    *entity.TokenBundle `json:"tokens"`
}

// Signin handles the first-factor sign-in request.
func (h *AuthHandler) Signin(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req signinRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-in input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.uc.Signin(c.Request().Context(), &usecase.SigninInput{
		TenantID:   tenant,
		ClientID:   req.ClientID,
		Identifier: req.Identifier,
		Secret:     req.Secret,
		Factor:     entity.AuthMethod(req.Factor),
		Scope:      req.Scope,
		Device:     req.Device.metadata(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, signinResponse{
		SessionID: result.SessionID.String(),
		UserID:    result.UserID,
		Tokens:    result.Tokens,
	}, "Sign-in successful")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
