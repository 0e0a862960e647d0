// Package clientsvc validates first-party clients against static
// configuration.
package clientsvc

import (
	"context"

	"aegis/config"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/service"
)

// clientService implements service.ClientService from the configured client
// registry. All listed clients are first-party.
type clientService struct {
	clients map[string]*config.ClientConfig
}

// New is the constructor for clientService.
func New(cfg *config.Config) service.ClientService {
	clients := make(map[string]*config.ClientConfig, len(cfg.Clients))
	for i := range cfg.Clients {
		client := &cfg.Clients[i]
		clients[client.TenantID+"/"+client.ClientID] = client
	}

	return &clientService{clients: clients}
}

// ValidateClient checks the client exists for the tenant and that every
// requested scope is within the client's allowed set.
func (s *clientService) ValidateClient(_ context.Context, tenantID, clientID string, scope []string) error {
	client, ok := s.clients[tenantID+"/"+clientID]
	if !ok {
		return domainerrors.ErrInvalidClient
	}

	allowed := make(map[string]struct{}, len(client.AllowedScopes))
	for _, s := range client.AllowedScopes {
		allowed[s] = struct{}{}
	}

	for _, requested := range scope {
		if _, ok := allowed[requested]; !ok {
			return domainerrors.ErrInvalidScope.WrapMessage(requested)
		}
	}

	return nil
}
