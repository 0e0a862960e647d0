// Package impl contains the application-specific business rules implementations.
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

	"github.com/pkg/errors"
)

// bruteForceGuard implements the BruteForceGuard interface. The cache counter
// decides when to block; the database row is the durable source of truth for
// whether a block is in force.
type bruteForceGuard struct {
	txManager    repository.TransactionManager
	counter      repository.AttemptCounter
	tenants      service.TenantConfigProvider
	publisher    service.EventPublisher
	users        service.UserService
	notification service.NotificationService
	logger       *slog.Logger
	now          func() time.Time
}

// NewBruteForceGuard is the constructor for bruteForceGuard.
func NewBruteForceGuard(
	txManager repository.TransactionManager,
	counter repository.AttemptCounter,
	tenants service.TenantConfigProvider,
	publisher service.EventPublisher,
	users service.UserService,
	notification service.NotificationService,
	logger *slog.Logger,
) usecase.BruteForceGuard {
	return &bruteForceGuard{
		txManager:    txManager,
		counter:      counter,
		tenants:      tenants,
		publisher:    publisher,
		users:        users,
		notification: notification,
		logger:       logger,
		now:          time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *bruteForceGuard) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Attempt wraps a credential verification with blocking and counting.
func (srv *bruteForceGuard) Attempt(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow, verify func() error) error {
	// 1. An active block rejects the attempt before any verification work
	if err := srv.checkBlocked(ctx, tenantID, userIdentifier, flow); err != nil {
		return err
	}

	// 2. Run the actual credential check
	verifyErr := verify()
	if verifyErr == nil {
		// 3a. Success clears the flow's counter
		if err := srv.counter.Reset(ctx, tenantID, userIdentifier, flow); err != nil {
			srv.log(ctx).Warn("Failed to reset attempt counter",
				slog.String("tenant_id", tenantID),
				slog.String("flow", string(flow)),
				slog.Any("error", err),
			)
		}

		return nil
	}

	// 3b. Only wrong-credential failures feed the counter
	if !domainerrors.IsCredentialMismatch(verifyErr) {
		return verifyErr
	}

	cfg, err := srv.tenants.BlockConfig(ctx, tenantID)
	if err != nil {
		srv.log(ctx).Error("Failed to load block config, using defaults",
			slog.String("tenant_id", tenantID),
			slog.Any("error", err),
		)
		cfg = entity.DefaultBlockConfig()
	}

	window := time.Duration(cfg.AttemptsWindowSeconds) * time.Second
	count, err := srv.counter.Increment(ctx, tenantID, userIdentifier, flow, window)
	if err != nil {
		// Counting is advisory; the failed verification still surfaces.
		srv.log(ctx).Error("Failed to increment attempt counter",
			slog.String("tenant_id", tenantID),
			slog.String("flow", string(flow)),
			slog.Any("error", err),
		)

		return verifyErr
	}

	if count < cfg.AttemptsAllowed {
		return verifyErr
	}

	// 4. Threshold reached: write the block and reject with retry information
	unblockedAt := srv.now().Unix() + cfg.BlockIntervalSeconds
	if err := srv.placeBlock(ctx, tenantID, userIdentifier, flow, unblockedAt); err != nil {
		srv.log(ctx).Error("Failed to persist flow block",
			slog.String("tenant_id", tenantID),
			slog.String("flow", string(flow)),
			slog.Any("error", err),
		)

		return verifyErr
	}

	srv.notifyBlocked(ctx, tenantID, userIdentifier, flow, unblockedAt)

	return domainerrors.NewMaxAttemptsError(unblockedAt)
}

// checkBlocked consults the durable block record for the flow.
func (srv *bruteForceGuard) checkBlocked(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow) error {
	var block *entity.FlowBlock

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.FlowBlockRepo().FindActive(ctx, tenantID, userIdentifier, flow)
		if err != nil {
			if errors.Is(err, repository.ErrBlockNotFound) {
				return nil
			}

			return errors.Wrap(err, "failed to look up flow block")
		}
		block = found

		return nil
	})
	if err != nil {
		return err
	}

	if block != nil && block.Active(srv.now()) {
		return domainerrors.NewMaxAttemptsError(block.UnblockedAt)
	}

	return nil
}

func (srv *bruteForceGuard) placeBlock(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow, unblockedAt int64) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.FlowBlockRepo().Create(ctx, &entity.FlowBlock{
			TenantID:       tenantID,
			UserIdentifier: userIdentifier,
			Flow:           flow,
			Reason:         "attempt threshold exceeded",
			UnblockedAt:    unblockedAt,
			IsActive:       true,
		})
	})
	if err != nil {
		return err
	}

	// The counter has served its purpose for this window.
	if err := srv.counter.Reset(ctx, tenantID, userIdentifier, flow); err != nil {
		srv.log(ctx).Warn("Failed to reset attempt counter after block",
			slog.String("tenant_id", tenantID),
			slog.Any("error", err),
		)
	}

	return nil
}

// notifyBlocked publishes the audit event and pushes an alert to the user's
// device. Both are best-effort.
func (srv *bruteForceGuard) notifyBlocked(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow, unblockedAt int64) {
	event := &service.SecurityEvent{
		Type:      constants.EventFlowBlocked,
		TenantID:  tenantID,
		UserID:    userIdentifier,
		Timestamp: srv.now().Unix(),
		Payload: map[string]any{
			"flow":         string(flow),
			"unblocked_at": unblockedAt,
		},
	}
	if err := srv.publisher.PublishSecurityEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish flow blocked event", slog.Any("error", err))
	}

	profile, err := srv.users.GetUser(ctx, tenantID, userIdentifier)
	if err != nil || profile.FCMToken == "" {
		return
	}

	notifyErr := srv.notification.SendSingleNotification(ctx, &service.Notification{
		Token: profile.FCMToken,
		Title: "Sign-in temporarily blocked",
		Body:  "Too many failed attempts on your account. Try again later.",
		Data: map[string]string{
			"event": constants.EventFlowBlocked,
			"flow":  string(flow),
		},
	})
	if notifyErr != nil {
		srv.log(ctx).Warn("Failed to send block notification", slog.Any("error", notifyErr))
	}
}
