package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

type ProfileRepo struct{ DB *sql.DB }

// Upsert merges p into the profile keyed by its handle. Fields outside the
// merge set, created_at included, are left as they were.
func (r *ProfileRepo) Upsert(ctx context.Context, p *model.Profile) error {
	var displayName, avatarRef sql.NullString
	if p.DisplayName != "" {
		displayName = sql.NullString{String: p.DisplayName, Valid: true}
	}
	if p.AvatarRef != "" {
		avatarRef = sql.NullString{String: p.AvatarRef, Valid: true}
	}

	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (handle, owner_id, display_name, avatar_ref)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (handle) DO UPDATE SET
			owner_id     = EXCLUDED.owner_id,
			display_name = COALESCE(EXCLUDED.display_name, profiles.display_name),
			avatar_ref   = COALESCE(EXCLUDED.avatar_ref, profiles.avatar_ref),
			updated_at   = NOW()
		RETURNING created_at, updated_at
	`, p.Handle, p.OwnerID, displayName, avatarRef).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) Get(ctx context.Context, handle string) (*model.Profile, error) {
	p := &model.Profile{}
	var displayName, avatarRef sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT handle, owner_id, display_name, avatar_ref, created_at, updated_at FROM profiles WHERE handle=$1`, handle).
		Scan(&p.Handle, &p.OwnerID, &displayName, &avatarRef, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	p.DisplayName = displayName.String
	p.AvatarRef = avatarRef.String
	return p, nil
}
