package impl

import (
	"context"

	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"

	"github.com/pkg/errors"
)

// findSession resolves a refresh token to its active session. Revoked,
// unknown and expired tokens all surface as the same not-found error.
func findSession(ctx context.Context, txManager repository.TransactionManager, tenantID, clientID, refreshToken string) (*entity.RefreshToken, error) {
	var session *entity.RefreshToken

	err := txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.SessionRepo().FindByToken(ctx, tenantID, clientID, refreshToken)
		if err != nil {
			return err
		}
		session = found

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionExpired) {
			return nil, domainerrors.ErrRefreshTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find session")
	}

	return session, nil
}
