package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// SettingsRepository resolves plugin settings, preferring a sales-channel
// specific value over the global one stored under an empty channel id.
type SettingsRepository struct {
	q Executor
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{q: db.Pool}
}

var _ ports.SettingsStore = (*SettingsRepository)(nil)

func (r *SettingsRepository) Get(ctx context.Context, key string, scope ports.Scope) (string, error) {
	query := `
			SELECT value
			FROM lunar_settings
			WHERE key = $1 AND method_code = $2 AND sales_channel_id IN ($3, '')
			ORDER BY sales_channel_id DESC
			LIMIT 1
			`

	var value string
	err := r.q.QueryRow(ctx, query, key, scope.MethodCode, scope.SalesChannelID).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a setting for the given scope.
func (r *SettingsRepository) Set(ctx context.Context, key, value string, scope ports.Scope) error {
	query := `
			INSERT INTO lunar_settings (sales_channel_id, method_code, key, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (sales_channel_id, method_code, key) DO UPDATE SET value = EXCLUDED.value
			`

	if _, err := r.q.Exec(ctx, query, scope.SalesChannelID, scope.MethodCode, key, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
