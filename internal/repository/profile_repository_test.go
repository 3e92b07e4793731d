package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

func TestUpsert_MergesOnHandle(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	// Empty fields go in as NULL so COALESCE keeps what is stored.
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (handle) DO UPDATE SET")+
		`(?s).*`+regexp.QuoteMeta("COALESCE(EXCLUDED.avatar_ref, profiles.avatar_ref)")).
		WithArgs("lin", "acct-1", "林", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, updated))

	p := &model.Profile{Handle: "lin", OwnerID: "acct-1", DisplayName: "林"}
	require.NoError(t, (&ProfileRepo{DB: db}).Upsert(context.Background(), p))
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, updated, p.UpdatedAt)
}

func TestGet(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("FROM profiles WHERE handle=$1")

	mock.ExpectQuery(query).WithArgs("lin").
		WillReturnRows(sqlmock.NewRows([]string{"handle", "owner_id", "display_name", "avatar_ref", "created_at", "updated_at"}).
			AddRow("lin", "acct-1", "林", nil, now, now))
	mock.ExpectQuery(query).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	repo := &ProfileRepo{DB: db}
	p, err := repo.Get(context.Background(), "lin")
	require.NoError(t, err)
	assert.Equal(t, "林", p.DisplayName)
	assert.Empty(t, p.AvatarRef)

	_, err = repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrProfileNotFound)
}
