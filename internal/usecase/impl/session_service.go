package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "aegis/internal/delivery/context"
	"aegis/internal/domain/constants"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"
	"aegis/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager repository.TransactionManager
	publisher service.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(
	txManager repository.TransactionManager,
	publisher service.EventPublisher,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListSessions returns the user's active sessions with masked addresses.
func (srv *sessionService) ListSessions(ctx context.Context, tenantID, clientID, userID string) ([]*entity.SessionSummary, error) {
	var summaries []*entity.SessionSummary

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessions, err := repoFactory.SessionRepo().FindActiveByUser(ctx, tenantID, clientID, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find sessions")
		}

		summaries = make([]*entity.SessionSummary, 0, len(sessions))
		for _, session := range sessions {
			summaries = append(summaries, &entity.SessionSummary{
				ID:         session.ID,
				DeviceName: session.Device.DeviceName,
				Location:   session.Device.Location,
				MaskedIP:   entity.MaskIP(session.Device.IP),
				CreatedAt:  session.CreatedAt,
			})
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to list sessions", slog.Any("error", err))

		return nil, err
	}

	return summaries, nil
}

// RevokeSession deactivates one session after an ownership check.
func (srv *sessionService) RevokeSession(ctx context.Context, tenantID, clientID, userID string, sessionID uuid.UUID) error {
	srv.log(ctx).Info("Revoking session",
		slog.String("tenant_id", tenantID),
		slog.Any("session_id", sessionID),
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		// 1. The session must exist and belong to the caller
		session, err := sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return domainerrors.ErrNotFound.WrapMessage("session not found")
			}

			return errors.Wrap(err, "failed to find session")
		}
		if session.TenantID != tenantID || session.ClientID != clientID || session.UserID != userID {
			return domainerrors.ErrForbidden.WrapMessage("session does not belong to user")
		}

		// 2. Deactivate, never delete
		if err := sessionRepo.Deactivate(ctx, sessionID); err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return domainerrors.ErrNotFound.WrapMessage("session already revoked")
			}

			return errors.Wrap(err, "failed to deactivate session")
		}

		return nil
	})
	if err != nil {
		return err
	}

	srv.publishRevoked(ctx, tenantID, userID, sessionID.String())

	return nil
}

// RevokeAllSessions deactivates every active session of the user.
func (srv *sessionService) RevokeAllSessions(ctx context.Context, tenantID, clientID, userID string) error {
	srv.log(ctx).Info("Revoking all sessions",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().DeactivateByUser(ctx, tenantID, clientID, userID)
	})
	if err != nil {
		return errors.Wrap(err, "failed to deactivate sessions")
	}

	srv.publishRevoked(ctx, tenantID, userID, "all")

	return nil
}

func (srv *sessionService) publishRevoked(ctx context.Context, tenantID, userID, sessionID string) {
	event := &service.SecurityEvent{
		Type:      constants.EventSessionRevoked,
		TenantID:  tenantID,
		UserID:    userID,
		Timestamp: srv.now().Unix(),
		Payload: map[string]any{
			"session_id": sessionID,
		},
	}
	if err := srv.publisher.PublishSecurityEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish session revoked event", slog.Any("error", err))
	}
}
