package repository

import "context"

// RepositoryFactory provides access to repositories bound to a transaction.
type RepositoryFactory interface {
	SessionRepo() SessionRepository
	CredentialRepo() CredentialRepository
	FlowBlockRepo() FlowBlockRepository
	BlockConfigRepo() BlockConfigRepository
}

// TransactionManager defines the interface for managing database transactions
type TransactionManager interface {
	// Execute runs fn within a transaction. Every repository obtained from the
	// factory shares the same transaction; returning an error rolls back.
	Execute(ctx context.Context, fn func(repoFactory RepositoryFactory) error) error
}
