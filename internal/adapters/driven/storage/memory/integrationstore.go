package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
)

// Ensure the stores implement their interfaces.
var (
	_ driven.IntegrationStore = (*IntegrationStore)(nil)
	_ driven.TempTokenStore   = (*TempTokenStore)(nil)
	_ driven.SelectionStore   = (*SelectionStore)(nil)
)

type providerKey struct {
	id       string
	provider string
}

// IntegrationStore is an in-memory implementation of driven.IntegrationStore.
type IntegrationStore struct {
	mu           sync.RWMutex
	integrations map[providerKey]domain.Integration
}

// NewIntegrationStore creates a new in-memory integration store.
func NewIntegrationStore() *IntegrationStore {
	return &IntegrationStore{
		integrations: make(map[providerKey]domain.Integration),
	}
}

// Get retrieves the integration for a project and provider.
func (s *IntegrationStore) Get(_ context.Context, projectID, provider string) (*domain.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	integ, ok := s.integrations[providerKey{projectID, provider}]
	if !ok {
		return nil, nil
	}
	return &integ, nil
}

// Save creates or replaces the integration keyed by (project, provider).
func (s *IntegrationStore) Save(_ context.Context, integ *domain.Integration) error {
	if integ == nil || integ.ProjectID == "" || integ.Provider == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := providerKey{integ.ProjectID, integ.Provider}
	now := time.Now()
	if existing, ok := s.integrations[key]; ok {
		integ.ID = existing.ID
		integ.CreatedAt = existing.CreatedAt
	}
	if integ.ID == "" {
		integ.ID = uuid.NewString()
	}
	if integ.CreatedAt.IsZero() {
		integ.CreatedAt = now
	}
	integ.UpdatedAt = now
	s.integrations[key] = *integ
	return nil
}

// UpdateAccessToken replaces only the sealed access token and expiry.
func (s *IntegrationStore) UpdateAccessToken(_ context.Context, id, sealedAccess string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, integ := range s.integrations {
		if integ.ID == id {
			integ.AccessToken = sealedAccess
			integ.Expiry = expiry
			integ.UpdatedAt = time.Now()
			s.integrations[key] = integ
			return nil
		}
	}
	return domain.ErrNotFound
}

// ListByProvider returns every integration for a provider.
func (s *IntegrationStore) ListByProvider(_ context.Context, provider string) ([]domain.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Integration
	for key, integ := range s.integrations {
		if key.provider == provider {
			result = append(result, integ)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProjectID < result[j].ProjectID })
	return result, nil
}

// Delete removes the integration for a project and provider.
func (s *IntegrationStore) Delete(_ context.Context, projectID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.integrations, providerKey{projectID, provider})
	return nil
}

// TempTokenStore is an in-memory implementation of driven.TempTokenStore.
type TempTokenStore struct {
	mu     sync.RWMutex
	tokens map[providerKey]domain.TempToken
}

// NewTempTokenStore creates a new in-memory temporary token store.
func NewTempTokenStore() *TempTokenStore {
	return &TempTokenStore{
		tokens: make(map[providerKey]domain.TempToken),
	}
}

// Save creates or replaces the token keyed by (owner, provider).
func (s *TempTokenStore) Save(_ context.Context, token *domain.TempToken) error {
	if token == nil || token.Owner == "" || token.Provider == "" {
		return domain.ErrInvalidInput
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[providerKey{token.Owner, token.Provider}] = *token
	return nil
}

// Get retrieves a temporary token.
func (s *TempTokenStore) Get(_ context.Context, owner, provider string) (*domain.TempToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[providerKey{owner, provider}]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

// Delete removes a temporary token.
func (s *TempTokenStore) Delete(_ context.Context, owner, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, providerKey{owner, provider})
	return nil
}

// DeleteOlderThan removes tokens last updated before cutoff.
func (s *TempTokenStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, token := range s.tokens {
		if token.UpdatedAt.Before(cutoff) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}

// SelectionStore is an in-memory implementation of driven.SelectionStore.
type SelectionStore struct {
	mu    sync.RWMutex
	items map[string][]domain.SelectedItem
}

// NewSelectionStore creates a new in-memory selection store.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{
		items: make(map[string][]domain.SelectedItem),
	}
}

// Replace swaps the integration's selection for items.
func (s *SelectionStore) Replace(_ context.Context, integrationID string, items []domain.SelectedItem) error {
	seen := make(map[string]bool, len(items))
	stored := make([]domain.SelectedItem, 0, len(items))
	now := time.Now()
	for _, item := range items {
		if !item.Type.IsValid() || item.ExternalID == "" || seen[item.ExternalID] {
			return fmt.Errorf("%w: selected item %q", domain.ErrInvalidInput, item.ExternalID)
		}
		seen[item.ExternalID] = true
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.IntegrationID = integrationID
		stored = append(stored, item)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[integrationID] = stored
	return nil
}

// List returns the integration's selected items.
func (s *SelectionStore) List(_ context.Context, integrationID string) ([]domain.SelectedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SelectedItem(nil), s.items[integrationID]...), nil
}
