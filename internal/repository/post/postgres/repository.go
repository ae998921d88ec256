package post_repository_postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
	"pulsefeed-post-service/internal/metrics"
	"pulsefeed-post-service/internal/model"
)

type PostRepository struct {
	db      *pgxpool.Pool
	log     *logger.Logger
	metrics metrics.MetricsProvider
}

func NewPostRepository(db *pgxpool.Pool, log *logger.Logger, metrics metrics.MetricsProvider) *PostRepository {
	return &PostRepository{db: db, log: log, metrics: metrics}
}

func (p *PostRepository) Create(ctx context.Context, post *model.Post) (*model.Post, error) {
	start := time.Now()
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}

	args := pgx.NamedArgs{
		"author_id":   post.AuthorID,
		"author_name": post.AuthorName,
		"caption":     post.Caption,
		"media_url":   post.MediaURL,
		"created_at":  now,
	}

	query := `
		INSERT INTO posts (author_id, author_name, caption, media_url, created_at)
		VALUES (@author_id, @author_name, @caption, @media_url, @created_at)
		RETURNING id, author_id, author_name, caption, media_url, created_at`

	var createdPost model.Post
	err := p.db.QueryRow(ctx, query, args).Scan(
		&createdPost.ID,
		&createdPost.AuthorID,
		&createdPost.AuthorName,
		&createdPost.Caption,
		&createdPost.MediaURL,
		&createdPost.CreatedAt,
	)
	p.metrics.RecordDatabaseQueryDuration("post_create", time.Since(start))

	if err != nil {
		p.metrics.IncrementDatabaseQueries("post_create", false)
		p.log.Error("Error creating post", slog.String("error", err.Error()))
		return nil, custom_errors.ErrDatabaseQuery
	}

	p.metrics.IncrementDatabaseQueries("post_create", true)
	return &createdPost, nil
}

func (p *PostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	start := time.Now()
	args := pgx.NamedArgs{"id": id}
	query := `SELECT id, author_id, author_name, caption, media_url, created_at
				FROM posts WHERE id = @id`

	post := &model.Post{}
	err := p.db.QueryRow(ctx, query, args).Scan(
		&post.ID,
		&post.AuthorID,
		&post.AuthorName,
		&post.Caption,
		&post.MediaURL,
		&post.CreatedAt,
	)
	p.metrics.RecordDatabaseQueryDuration("post_get_by_id", time.Since(start))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			p.metrics.IncrementDatabaseQueries("post_get_by_id", true)
			p.log.Debug("Post not found by id", slog.Int64("id", id))
			return nil, custom_errors.ErrPostNotFound
		}
		p.metrics.IncrementDatabaseQueries("post_get_by_id", false)
		p.log.Error("Error getting post by id", slog.Int64("id", id), slog.String("error", err.Error()))
		return nil, custom_errors.ErrDatabaseQuery
	}

	p.metrics.IncrementDatabaseQueries("post_get_by_id", true)
	return post, nil
}

func (p *PostRepository) GetByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	start := time.Now()
	args := pgx.NamedArgs{"author_id": authorID}
	query := `SELECT id, author_id, author_name, caption, media_url, created_at
				FROM posts WHERE author_id = @author_id
				ORDER BY created_at DESC, id DESC`

	rows, err := p.db.Query(ctx, query, args)
	if err != nil {
		p.metrics.IncrementDatabaseQueries("post_get_by_author", false)
		p.log.Error("Error getting posts by author", slog.String("author_id", authorID), slog.String("error", err.Error()))
		return nil, custom_errors.ErrDatabaseQuery
	}
	defer rows.Close()

	posts, err := p.scanPosts(rows)
	p.metrics.RecordDatabaseQueryDuration("post_get_by_author", time.Since(start))
	if err != nil {
		p.metrics.IncrementDatabaseQueries("post_get_by_author", false)
		p.log.Error("Error scanning posts during GetByAuthor", slog.String("author_id", authorID), slog.String("error", err.Error()))
		return nil, err
	}

	p.metrics.IncrementDatabaseQueries("post_get_by_author", true)
	return posts, nil
}

func (p *PostRepository) List(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	start := time.Now()
	args := pgx.NamedArgs{"limit": limit, "offset": offset}
	query := `SELECT id, author_id, author_name, caption, media_url, created_at
				FROM posts
				ORDER BY created_at DESC, id DESC
				LIMIT @limit OFFSET @offset`

	rows, err := p.db.Query(ctx, query, args)
	if err != nil {
		p.metrics.IncrementDatabaseQueries("post_list", false)
		p.log.Error("Error listing posts", slog.String("error", err.Error()))
		return nil, custom_errors.ErrDatabaseQuery
	}
	defer rows.Close()

	posts, err := p.scanPosts(rows)
	p.metrics.RecordDatabaseQueryDuration("post_list", time.Since(start))
	if err != nil {
		p.metrics.IncrementDatabaseQueries("post_list", false)
		p.log.Error("Error scanning posts during List", slog.String("error", err.Error()))
		return nil, err
	}

	p.metrics.IncrementDatabaseQueries("post_list", true)
	return posts, nil
}

func (p *PostRepository) Update(ctx context.Context, id int64, update *model.UpdatePostDTO) (*model.Post, error) {
	setClauses := []string{}
	args := pgx.NamedArgs{"id": id}

	if update.Caption != nil {
		setClauses = append(setClauses, "caption = @caption")
		args["caption"] = *update.Caption
	}
	if update.MediaURL != nil {
		setClauses = append(setClauses, "media_url = @media_url")
		args["media_url"] = *update.MediaURL
	}

	if len(setClauses) == 0 {
		return nil, custom_errors.ErrNoUpdateRows
	}

	query := "UPDATE posts SET " + strings.Join(setClauses, ", ") +
		" WHERE id = @id RETURNING id, author_id, author_name, caption, media_url, created_at"

	start := time.Now()
	var updatedPost model.Post
	err := p.db.QueryRow(ctx, query, args).Scan(
		&updatedPost.ID,
		&updatedPost.AuthorID,
		&updatedPost.AuthorName,
		&updatedPost.Caption,
		&updatedPost.MediaURL,
		&updatedPost.CreatedAt,
	)
	p.metrics.RecordDatabaseQueryDuration("post_update", time.Since(start))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			p.metrics.IncrementDatabaseQueries("post_update", true)
			p.log.Debug("Post not found by id during Update", slog.Int64("id", id))
			return nil, custom_errors.ErrPostNotFound
		}
		p.metrics.IncrementDatabaseQueries("post_update", false)
		p.log.Error("Error updating post", slog.Int64("id", id), slog.String("error", err.Error()))
		return nil, custom_errors.ErrDatabaseQuery
	}

	p.metrics.IncrementDatabaseQueries("post_update", true)
	return &updatedPost, nil
}

func (p *PostRepository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	args := pgx.NamedArgs{"id": id}
	query := `DELETE FROM posts WHERE id = @id`

	result, err := p.db.Exec(ctx, query, args)
	p.metrics.RecordDatabaseQueryDuration("post_delete", time.Since(start))
	if err != nil {
		p.metrics.IncrementDatabaseQueries("post_delete", false)
		p.log.Error("Error deleting post", slog.Int64("id", id), slog.String("error", err.Error()))
		return custom_errors.ErrDatabaseQuery
	}
	if result.RowsAffected() == 0 {
		p.metrics.IncrementDatabaseQueries("post_delete", true)
		return custom_errors.ErrPostNotFound
	}

	p.metrics.IncrementDatabaseQueries("post_delete", true)
	return nil
}

func (p *PostRepository) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	args := pgx.NamedArgs{"ids": ids}
	query := `DELETE FROM posts WHERE id = ANY(@ids)`

	result, err := p.db.Exec(ctx, query, args)
	p.metrics.RecordDatabaseQueryDuration("post_delete_many", time.Since(start))
	if err != nil {
		p.metrics.IncrementDatabaseQueries("post_delete_many", false)
		p.log.Error("Error batch deleting posts", slog.Int("count", len(ids)), slog.String("error", err.Error()))
		return custom_errors.ErrDatabaseQuery
	}

	p.metrics.IncrementDatabaseQueries("post_delete_many", true)
	p.log.Debug("Batch deleted posts",
		slog.Int("requested", len(ids)),
		slog.Int64("deleted", result.RowsAffected()))
	return nil
}

func (p *PostRepository) scanPosts(rows pgx.Rows) ([]*model.Post, error) {
	var posts []*model.Post
	for rows.Next() {
		var post model.Post
		err := rows.Scan(
			&post.ID,
			&post.AuthorID,
			&post.AuthorName,
			&post.Caption,
			&post.MediaURL,
			&post.CreatedAt,
		)
		if err != nil {
			return nil, custom_errors.ErrDatabaseScan
		}
		posts = append(posts, &post)
	}

	if err := rows.Err(); err != nil {
		return nil, custom_errors.ErrDatabaseQuery
	}

	return posts, nil
}
