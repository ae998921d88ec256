package post_repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
	"pulsefeed-post-service/internal/model"
	post_repository "pulsefeed-post-service/internal/repository/post"
	"pulsefeed-post-service/internal/repository/post/memory"
)

func setupPostTest(t *testing.T) post_repository.Repository {
	t.Helper()
	log := logger.New("test")
	return memory.NewPostRepository(log)
}

func strPtr(s string) *string { return &s }

func tstz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func TestPostRepository_Create(t *testing.T) {
	repo := setupPostTest(t)

	got, err := repo.Create(context.Background(), &model.Post{
		AuthorID:   "u1",
		AuthorName: strPtr("User One"),
		Caption:    "hello world",
		MediaURL:   strPtr("http://media/img-1.jpg"),
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "u1", got.AuthorID)
	assert.Equal(t, "hello world", got.Caption)
	assert.True(t, got.CreatedAt.Valid)
}

func TestPostRepository_GetByID(t *testing.T) {
	repo := setupPostTest(t)

	created, err := repo.Create(context.Background(), &model.Post{AuthorID: "u1", Caption: "first"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      int64
		wantErr error
	}{
		{name: "existing post", id: created.ID, wantErr: nil},
		{name: "missing post", id: 9999, wantErr: custom_errors.ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByID(context.Background(), tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, created.ID, got.ID)
				assert.Equal(t, "first", got.Caption)
			}
		})
	}
}

func TestPostRepository_GetByAuthor_Ordering(t *testing.T) {
	repo := setupPostTest(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Two posts share a timestamp; the higher id must come first.
	for i, post := range []*model.Post{
		{AuthorID: "u1", Caption: "a", CreatedAt: tstz(base)},
		{AuthorID: "u1", Caption: "b", CreatedAt: tstz(base.Add(time.Minute))},
		{AuthorID: "u1", Caption: "c", CreatedAt: tstz(base.Add(time.Minute))},
		{AuthorID: "u2", Caption: "other", CreatedAt: tstz(base.Add(time.Hour))},
	} {
		_, err := repo.Create(context.Background(), post)
		require.NoError(t, err, "post %d", i)
	}

	got, err := repo.GetByAuthor(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	captions := []string{got[0].Caption, got[1].Caption, got[2].Caption}
	assert.Equal(t, []string{"c", "b", "a"}, captions)
}

func TestPostRepository_List_Pagination(t *testing.T) {
	repo := setupPostTest(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := repo.Create(context.Background(), &model.Post{
			AuthorID:  "u1",
			Caption:   string(rune('a' + i)),
			CreatedAt: tstz(base.Add(time.Duration(i) * time.Minute)),
		})
		require.NoError(t, err)
	}

	page1, err := repo.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "e", page1[0].Caption)
	assert.Equal(t, "d", page1[1].Caption)

	page2, err := repo.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "c", page2[0].Caption)
	assert.Equal(t, "b", page2[1].Caption)

	empty, err := repo.List(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostRepository_Update(t *testing.T) {
	repo := setupPostTest(t)

	created, err := repo.Create(context.Background(), &model.Post{AuthorID: "u1", Caption: "before"})
	require.NoError(t, err)

	updated, err := repo.Update(context.Background(), created.ID, &model.UpdatePostDTO{
		Caption: strPtr("after"),
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Caption)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt.Time, updated.CreatedAt.Time, "created_at is write-once")

	_, err = repo.Update(context.Background(), 9999, &model.UpdatePostDTO{Caption: strPtr("x")})
	assert.ErrorIs(t, err, custom_errors.ErrPostNotFound)

	_, err = repo.Update(context.Background(), created.ID, &model.UpdatePostDTO{})
	assert.ErrorIs(t, err, custom_errors.ErrNoUpdateRows, "empty update has no rows to change")
}

func TestPostRepository_Delete(t *testing.T) {
	repo := setupPostTest(t)

	created, err := repo.Create(context.Background(), &model.Post{AuthorID: "u1", Caption: "doomed"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), created.ID))

	_, err = repo.GetByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, custom_errors.ErrPostNotFound)

	assert.ErrorIs(t, repo.Delete(context.Background(), created.ID), custom_errors.ErrPostNotFound)
}

func TestPostRepository_DeleteMany(t *testing.T) {
	repo := setupPostTest(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		created, err := repo.Create(context.Background(), &model.Post{AuthorID: "u1", Caption: "p"})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	require.NoError(t, repo.DeleteMany(context.Background(), ids))

	remaining, err := repo.GetByAuthor(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Empty and already-deleted id sets are no-ops.
	assert.NoError(t, repo.DeleteMany(context.Background(), nil))
	assert.NoError(t, repo.DeleteMany(context.Background(), ids))
}
