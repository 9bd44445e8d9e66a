package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
)

// ==================== Integration Store ====================

// integrationStore implements driven.IntegrationStore.
type integrationStore struct {
	store *Store
}

var _ driven.IntegrationStore = (*integrationStore)(nil)

const integrationColumns = `id, project_id, provider, account_email, access_token, refresh_token,
	token_expires_at, granted_by, scope, created_at, updated_at`

// Get retrieves the integration for a project and provider.
// Returns nil and no error if none exists.
func (s *integrationStore) Get(ctx context.Context, projectID, provider string) (*domain.Integration, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+integrationColumns+" FROM integrations WHERE project_id = ? AND provider = ?",
		projectID, provider)

	integ, err := scanIntegration(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return integ, err
}

// Save creates or replaces the integration keyed by (project, provider).
func (s *integrationStore) Save(ctx context.Context, integ *domain.Integration) error {
	if integ == nil || integ.ProjectID == "" || integ.Provider == "" {
		return domain.ErrInvalidInput
	}
	if integ.ID == "" {
		integ.ID = uuid.NewString()
	}
	now := time.Now()
	if integ.CreatedAt.IsZero() {
		integ.CreatedAt = now
	}
	integ.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO integrations (`+integrationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, provider) DO UPDATE SET
			account_email = excluded.account_email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			granted_by = excluded.granted_by,
			scope = excluded.scope,
			updated_at = excluded.updated_at
	`, integ.ID, integ.ProjectID, integ.Provider, nullString(integ.AccountEmail),
		integ.AccessToken, nullString(integ.RefreshToken), formatNullableTime(integ.Expiry),
		nullString(integ.GrantedBy), nullString(integ.Scope),
		formatTime(integ.CreatedAt), formatTime(integ.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving integration: %w", err)
	}

	// The conflict path keeps the stored ID; reflect it back to the caller.
	return s.store.db.QueryRowContext(ctx,
		"SELECT id FROM integrations WHERE project_id = ? AND provider = ?",
		integ.ProjectID, integ.Provider).Scan(&integ.ID)
}

// UpdateAccessToken replaces only the sealed access token and expiry.
func (s *integrationStore) UpdateAccessToken(ctx context.Context, id, sealedAccess string, expiry time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE integrations SET access_token = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?
	`, sealedAccess, formatNullableTime(expiry), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating access token: %w", err)
	}
	return requireAffected(res)
}

// ListByProvider returns every integration for a provider.
func (s *integrationStore) ListByProvider(ctx context.Context, provider string) ([]domain.Integration, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+integrationColumns+" FROM integrations WHERE provider = ? ORDER BY created_at", provider)
	if err != nil {
		return nil, fmt.Errorf("querying integrations: %w", err)
	}
	defer rows.Close()

	var integrations []domain.Integration //nolint:prealloc // size unknown from query
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *integ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating integrations: %w", err)
	}
	return integrations, nil
}

// Delete removes the integration for a project and provider.
func (s *integrationStore) Delete(ctx context.Context, projectID, provider string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM integrations WHERE project_id = ? AND provider = ?", projectID, provider)
	if err != nil {
		return fmt.Errorf("deleting integration: %w", err)
	}
	return nil
}

func scanIntegration(row rowScanner) (*domain.Integration, error) {
	var integ domain.Integration
	var email, refresh, expiry, grantedBy, scope sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&integ.ID, &integ.ProjectID, &integ.Provider, &email, &integ.AccessToken,
		&refresh, &expiry, &grantedBy, &scope, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning integration: %w", err)
	}

	integ.AccountEmail = email.String
	integ.RefreshToken = refresh.String
	integ.Expiry = parseNullableTime(expiry)
	integ.GrantedBy = grantedBy.String
	integ.Scope = scope.String
	integ.CreatedAt = parseTime(createdAt)
	integ.UpdatedAt = parseTime(updatedAt)
	return &integ, nil
}

// ==================== Temp Token Store ====================

// tempTokenStore implements driven.TempTokenStore.
type tempTokenStore struct {
	store *Store
}

var _ driven.TempTokenStore = (*tempTokenStore)(nil)

// Save creates or replaces the token keyed by (owner, provider).
func (s *tempTokenStore) Save(ctx context.Context, token *domain.TempToken) error {
	if token == nil || token.Owner == "" || token.Provider == "" {
		return domain.ErrInvalidInput
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO temp_tokens (owner, provider, sealed, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, provider) DO UPDATE SET
			sealed = excluded.sealed,
			updated_at = excluded.updated_at
	`, token.Owner, token.Provider, token.Sealed, formatTime(token.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving temp token: %w", err)
	}
	return nil
}

// Get retrieves a temporary token.
// Returns nil and no error if none exists.
func (s *tempTokenStore) Get(ctx context.Context, owner, provider string) (*domain.TempToken, error) {
	var token domain.TempToken
	var updatedAt string

	err := s.store.db.QueryRowContext(ctx, `
		SELECT owner, provider, sealed, updated_at FROM temp_tokens WHERE owner = ? AND provider = ?
	`, owner, provider).Scan(&token.Owner, &token.Provider, &token.Sealed, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning temp token: %w", err)
	}

	token.UpdatedAt = parseTime(updatedAt)
	return &token, nil
}

// Delete removes a temporary token.
func (s *tempTokenStore) Delete(ctx context.Context, owner, provider string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM temp_tokens WHERE owner = ? AND provider = ?", owner, provider)
	if err != nil {
		return fmt.Errorf("deleting temp token: %w", err)
	}
	return nil
}

// DeleteOlderThan removes tokens last updated before cutoff.
func (s *tempTokenStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM temp_tokens WHERE updated_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting expired temp tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(n), nil
}

// ==================== Selection Store ====================

// selectionStore implements driven.SelectionStore.
type selectionStore struct {
	store *Store
}

var _ driven.SelectionStore = (*selectionStore)(nil)

// Replace atomically swaps the integration's selection for items.
func (s *selectionStore) Replace(ctx context.Context, integrationID string, items []domain.SelectedItem) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM selected_items WHERE integration_id = ?", integrationID); err != nil {
		return fmt.Errorf("clearing selection: %w", err)
	}

	now := time.Now()
	for i := range items {
		item := &items[i]
		if !item.Type.IsValid() || item.ExternalID == "" {
			return fmt.Errorf("%w: selected item %q", domain.ErrInvalidInput, item.ExternalID)
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.IntegrationID = integrationID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO selected_items (id, integration_id, item_type, external_id, name, mime_type, recursive, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, integrationID, string(item.Type), item.ExternalID, nullString(item.Name),
			nullString(item.MIMEType), boolToInt(item.Recursive), formatTime(item.CreatedAt))
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s selected twice", domain.ErrInvalidInput, item.ExternalID)
		}
		if err != nil {
			return fmt.Errorf("inserting selected item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing selection: %w", err)
	}
	return nil
}

// List returns the integration's selected items.
func (s *selectionStore) List(ctx context.Context, integrationID string) ([]domain.SelectedItem, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, integration_id, item_type, external_id, name, mime_type, recursive, created_at
		FROM selected_items WHERE integration_id = ? ORDER BY created_at, external_id
	`, integrationID)
	if err != nil {
		return nil, fmt.Errorf("querying selected items: %w", err)
	}
	defer rows.Close()

	var items []domain.SelectedItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		var item domain.SelectedItem
		var itemType, createdAt string
		var name, mimeType sql.NullString
		var recursive int
		if err := rows.Scan(&item.ID, &item.IntegrationID, &itemType, &item.ExternalID,
			&name, &mimeType, &recursive, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning selected item: %w", err)
		}
		item.Type = domain.ItemType(itemType)
		item.Name = name.String
		item.MIMEType = mimeType.String
		item.Recursive = recursive == 1
		item.CreatedAt = parseTime(createdAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating selected items: %w", err)
	}
	return items, nil
}
