package handler

import (
	"log/slog"
	"net/http"

	"aegis/internal/delivery/http/response"
	"aegis/internal/domain/entity"
	"aegis/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// BiometricHandler holds dependencies for the challenge/response handlers.
type BiometricHandler struct {
	uc     usecase.BiometricUsecase
	logger *slog.Logger
}

// NewBiometricHandler is the constructor for BiometricHandler, injected by Fx.
func NewBiometricHandler(uc usecase.BiometricUsecase, logger *slog.Logger) *BiometricHandler {
	return &BiometricHandler{uc: uc, logger: logger}
}

type challengeRequest struct {
	ClientID     string        `json:"clientId" validate:"required"`
	RefreshToken string        `json:"refreshToken" validate:"required"`
	Device       deviceRequest `json:"device"`
}

// CreateChallenge issues a single-use signing challenge for the device.
func (h *BiometricHandler) CreateChallenge(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req challengeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid challenge input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.uc.CreateChallenge(c.Request().Context(), &usecase.ChallengeInput{
		TenantID:     tenant,
		ClientID:     req.ClientID,
		RefreshToken: req.RefreshToken,
		Device:       req.Device.metadata(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, result, "Challenge issued")
}

type completeRequest struct {
	ClientID     string `json:"clientId" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
	State        string `json:"state" validate:"required"`
	Signature    string `json:"signature" validate:"required"`
	PublicKey    string `json:"publicKey"`
	CredentialID string `json:"credentialId"`
	Platform     string `json:"platform"`
	BindingType  string `json:"bindingType"`
	SignCount    uint32 `json:"signCount"`
	AAGUID       string `json:"aaguid"`
}

// Complete verifies the signed challenge and returns fresh tokens. Token
// cookies follow the tenant's cookie policy.
func (h *BiometricHandler) Complete(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid completion input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.uc.Complete(c.Request().Context(), &usecase.CompleteInput{
		TenantID:     tenant,
		ClientID:     req.ClientID,
		RefreshToken: req.RefreshToken,
		State:        req.State,
		Signature:    req.Signature,
		PublicKey:    req.PublicKey,
		CredentialID: req.CredentialID,
		Platform:     req.Platform,
		BindingType:  req.BindingType,
		SignCount:    req.SignCount,
		AAGUID:       req.AAGUID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	setTokenCookies(c, result.Cookie, result.Tokens)

	return response.Success(c, http.StatusOK, completeResponse{
		UserID: result.UserID,
		Tokens: result.Tokens,
	}, "Challenge completed")
}

type completeResponse struct {
	UserID string              `json:"userId"`
	Tokens *entity.TokenBundle `json:"tokens"`
}

// setTokenCookies writes the token cookies configured by the tenant. Tenants
// without cookie names opt out of cookie delivery entirely.
func setTokenCookies(c echo.Context, policy entity.CookiePolicy, tokens *entity.TokenBundle) {
	sameSite := http.SameSiteLaxMode
	switch policy.SameSite {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	if policy.AccessTokenName != "" {
		c.SetCookie(&http.Cookie{
			Name:     policy.AccessTokenName,
			Value:    tokens.AccessToken,
			Domain:   policy.Domain,
			Path:     policy.Path,
			Secure:   policy.Secure,
			HttpOnly: true,
			SameSite: sameSite,
		})
	}
	if policy.RefreshTokenName != "" {
		c.SetCookie(&http.Cookie{
			Name:     policy.RefreshTokenName,
			Value:    tokens.RefreshToken,
			Domain:   policy.Domain,
			Path:     policy.Path,
			Secure:   policy.Secure,
			HttpOnly: true,
			SameSite: sameSite,
		})
	}
}
