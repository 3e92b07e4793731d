package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

type PostRepo struct{ DB *sql.DB }

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *PostRepo) getter(tx *sql.Tx) queryable {
	if tx != nil {
		return tx
	}
	return r.DB
}

const postColumns = `id, owner_id, username, content, type, created_at`

// Insert writes a new post. The database stamps created_at.
func (r *PostRepo) Insert(ctx context.Context, tx *sql.Tx, np model.NewPost) (model.Post, error) {
	p := model.Post{
		ID:          uuid.NewString(),
		OwnerID:     np.OwnerID,
		DisplayName: np.DisplayName,
		Content:     np.Content,
		Kind:        np.Kind,
	}

	var createdAt sql.NullTime
	err := r.getter(tx).QueryRowContext(ctx, `
		INSERT INTO posts (id, owner_id, username, content, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID, p.OwnerID, p.DisplayName, p.Content, string(p.Kind)).Scan(&createdAt)
	if err != nil {
		return model.Post{}, fmt.Errorf("failed to insert post: %w", err)
	}
	p.CreatedAt = creationTime(createdAt)
	return p, nil
}

// UpdateContent replaces the content of a post owned by ownerID and returns
// the updated row.
func (r *PostRepo) UpdateContent(ctx context.Context, tx *sql.Tx, ownerID, id, content string) (model.Post, error) {
	if !validID(id) {
		return model.Post{}, model.ErrPostNotFound
	}
	row := r.getter(tx).QueryRowContext(ctx, `
		UPDATE posts SET content = $3
		WHERE id = $1 AND owner_id = $2
		RETURNING `+postColumns,
		id, ownerID, content)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, r.missReason(ctx, tx, id)
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("failed to update post: %w", err)
	}
	return p, nil
}

// Delete removes a post owned by ownerID and returns what was removed.
func (r *PostRepo) Delete(ctx context.Context, tx *sql.Tx, ownerID, id string) (model.Post, error) {
	if !validID(id) {
		return model.Post{}, model.ErrPostNotFound
	}
	row := r.getter(tx).QueryRowContext(ctx, `
		DELETE FROM posts
		WHERE id = $1 AND owner_id = $2
		RETURNING `+postColumns,
		id, ownerID)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, r.missReason(ctx, tx, id)
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("failed to delete post: %w", err)
	}
	return p, nil
}

// validID reports whether id can name a row of the uuid id column. Anything
// else cannot exist and would only earn a syntax error from Postgres.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// missReason tells a missing post apart from one owned by somebody else.
func (r *PostRepo) missReason(ctx context.Context, tx *sql.Tx, id string) error {
	var exists bool
	err := r.getter(tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up post: %w", err)
	}
	if exists {
		return model.ErrNotOwner
	}
	return model.ErrPostNotFound
}

// ListByOwner returns the owner's posts newest first. limit <= 0 means no
// limit. Rows without a timestamp sort first, as the newest writes.
func (r *PostRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Post, error) {
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE owner_id = $1
		ORDER BY created_at DESC NULLS FIRST, id DESC
		LIMIT $2
	`, ownerID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return collect(rows)
}

// ListByUsername returns the newest posts carrying the given handle.
func (r *PostRepo) ListByUsername(ctx context.Context, username string, limit int) ([]model.Post, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE username = $1
		ORDER BY created_at DESC NULLS FIRST, id DESC
		LIMIT $2
	`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list public posts: %w", err)
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner) (model.Post, error) {
	var p model.Post
	var kind string
	var createdAt sql.NullTime
	if err := s.Scan(&p.ID, &p.OwnerID, &p.DisplayName, &p.Content, &kind, &createdAt); err != nil {
		return model.Post{}, err
	}
	p.Kind = model.Kind(kind)
	p.CreatedAt = creationTime(createdAt)
	return p, nil
}

func collect(rows *sql.Rows) ([]model.Post, error) {
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// creationTime maps a null column to Pending.
func creationTime(t sql.NullTime) model.CreationTime {
	if !t.Valid {
		return model.Pending()
	}
	return model.FromTime(t.Time)
}
