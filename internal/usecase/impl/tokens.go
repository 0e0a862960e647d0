package impl

import (
	"context"

	"aegis/internal/domain/entity"
	"aegis/internal/domain/service"

	"github.com/pkg/errors"
)

// issueBundle mints the access and ID tokens for a session. The refresh token
// value inside the bundle is the session's own opaque token.
func issueBundle(
	ctx context.Context,
	issuer service.TokenIssuer,
	tenants service.TenantConfigProvider,
	session *entity.RefreshToken,
	profile *entity.UserProfile,
) (*entity.TokenBundle, error) {
	cfg, err := tenants.TenantConfig(ctx, session.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tenant config")
	}

	accessToken, err := issuer.IssueAccessToken(ctx, &service.AccessTokenInput{
		TenantID:     session.TenantID,
		ClientID:     session.ClientID,
		UserID:       session.UserID,
		Scope:        session.Scope,
		AuthMethods:  session.AuthMethods,
		RefreshToken: session.Token,
		Profile:      profile,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	idToken, err := issuer.IssueIDToken(ctx, &service.IDTokenInput{
		TenantID:    session.TenantID,
		ClientID:    session.ClientID,
		UserID:      session.UserID,
		AuthMethods: session.AuthMethods,
		Profile:     profile,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue ID token")
	}

	return &entity.TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: session.Token,
		IDToken:      idToken,
		TokenType:    "Bearer",
		ExpiresIn:    cfg.AccessTokenExpiry,
	}, nil
}
