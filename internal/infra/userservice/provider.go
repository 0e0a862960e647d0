// Package userservice contains the user-store backends: an HTTP client for a
// remote user service and a local GORM-backed implementation for
// self-contained deployments.
package userservice

import (
	"log/slog"

	"aegis/config"
	"aegis/internal/domain/constants"
	"aegis/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Params holds dependencies for the user service, injected by Fx
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB
}

// NewUserService creates a UserService based on configuration
func NewUserService(params Params) (service.UserService, error) {
	cfg := params.Config.UserService
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" || cfg.Provider == constants.UserServiceProviderLocal {
		logger.Info("Using local user store")

		bcryptCost := 0
		if params.Config.Auth != nil {
			bcryptCost = params.Config.Auth.BcryptCost
		}

		return NewLocalService(params.DB, bcryptCost), nil
	}

	if cfg.Provider != constants.UserServiceProviderHTTP {
		return nil, errors.Errorf("unknown user service provider: %s", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required for http user service provider")
	}

	logger.Info("Using HTTP user service",
		slog.String("base_url", cfg.BaseURL),
	)

	return NewHTTPClient(cfg, logger), nil
}

// Module provides the user service FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewUserService),
)
