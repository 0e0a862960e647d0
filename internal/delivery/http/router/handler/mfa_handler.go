package handler

import (
	"log/slog"
	"net/http"

	"aegis/internal/delivery/http/response"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// HeaderRefreshToken carries the session's refresh token on GET requests,
// keeping it out of URLs and access logs.
const HeaderRefreshToken = "refresh-token"

// MfaHandler holds dependencies for step-up and enrollment handlers.
type MfaHandler struct {
	uc     usecase.MfaUsecase
	logger *slog.Logger
}

// NewMfaHandler is the constructor for MfaHandler, injected by Fx.
func NewMfaHandler(uc usecase.MfaUsecase, logger *slog.Logger) *MfaHandler {
	return &MfaHandler{uc: uc, logger: logger}
}

type stepUpRequest struct {
	ClientID     string   `json:"clientId" validate:"required"`
	RefreshToken string   `json:"refreshToken" validate:"required"`
	Factor       string   `json:"factor" validate:"required"`
	Secret       string   `json:"secret" validate:"required"`
	Scope        []string `json:"scope"`
}

// StepUp handles the MFA step-up request on an existing session.
func (h *MfaHandler) StepUp(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req stepUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid step-up input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tokens, err := h.uc.StepUp(c.Request().Context(), &usecase.StepUpInput{
		TenantID:     tenant,
		ClientID:     req.ClientID,
		RefreshToken: req.RefreshToken,
		Factor:       entity.AuthMethod(req.Factor),
		Secret:       req.Secret,
		Scope:        req.Scope,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, tokens, "Step-up successful")
}

type enrollRequest struct {
	ClientID     string   `json:"clientId" validate:"required"`
	RefreshToken string   `json:"refreshToken" validate:"required"`
	Factor       string   `json:"factor" validate:"required"`
	Secret       string   `json:"secret" validate:"required"`
	Scope        []string `json:"scope"`
}

// Enroll handles the factor enrollment request.
func (h *MfaHandler) Enroll(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req enrollRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid enrollment input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tokens, err := h.uc.Enroll(c.Request().Context(), &usecase.EnrollInput{
		TenantID:     tenant,
		ClientID:     req.ClientID,
		RefreshToken: req.RefreshToken,
		Factor:       entity.AuthMethod(req.Factor),
		Secret:       req.Secret,
		Scope:        req.Scope,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, tokens, "Factor enrolled successfully")
}

// ListFactors reports enrollment state for every supported factor.
func (h *MfaHandler) ListFactors(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	clientID := c.QueryParam("client_id")
	refreshToken := c.Request().Header.Get(HeaderRefreshToken)
	if clientID == "" || refreshToken == "" {
		return domainerrors.ErrValidationFailed.WrapMessage("client_id and refresh token are required")
	}

	statuses, err := h.uc.ListFactors(c.Request().Context(), tenant, clientID, refreshToken)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, statuses, "Factors retrieved successfully")
}
