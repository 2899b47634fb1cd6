package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/pkg/database"
	apperrors "github.com/velora/search-service/pkg/errors"
)

// PreferenceRepository stores preference profiles as JSONB, one row per user.
// Save is a full overwrite, matching the batch job's recompute semantics.
type PreferenceRepository struct {
	pool database.DBTX
}

// NewPreferenceRepository creates a new PostgreSQL-backed preference repository.
func NewPreferenceRepository(pool database.DBTX) *PreferenceRepository {
	return &PreferenceRepository{pool: pool}
}

// Save upserts the profile, replacing any previous version.
func (r *PreferenceRepository) Save(ctx context.Context, profile *domain.PreferenceProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal preference profile: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, profile, calculated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET profile = EXCLUDED.profile, calculated_at = EXCLUDED.calculated_at`,
		profile.UserID, data, profile.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("save preference profile: %w", err)
	}
	return nil
}

// Get returns the stored profile for the user, or ErrNotFound.
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*domain.PreferenceProfile, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT profile FROM user_preferences WHERE user_id = $1`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("preference profile", userID)
		}
		return nil, fmt.Errorf("get preference profile: %w", err)
	}

	var profile domain.PreferenceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal preference profile: %w", err)
	}
	return &profile, nil
}

// ListUserIDs pages user ids ascending with keyset pagination. With
// onlyUninitialized, users that already have a stored profile are skipped.
func (r *PreferenceRepository) ListUserIDs(ctx context.Context, onlyUninitialized bool, afterID string, limit int) ([]string, error) {
	query := `
		SELECT u.id
		FROM users u
		LEFT JOIN user_preferences up ON up.user_id = u.id
		WHERE u.id > $1 AND ($2 = false OR up.user_id IS NULL)
		ORDER BY u.id ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, afterID, onlyUninitialized, limit)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("behavioral store", fmt.Errorf("list user ids: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
