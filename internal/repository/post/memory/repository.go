package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
	"pulsefeed-post-service/internal/model"
)

type PostRepository struct {
	log    *logger.Logger
	mu     sync.RWMutex
	posts  map[int64]*model.Post
	nextID int64
}

func NewPostRepository(log *logger.Logger) *PostRepository {
	return &PostRepository{
		log:    log,
		posts:  make(map[int64]*model.Post),
		nextID: 1,
	}
}

func (p *PostRepository) Create(ctx context.Context, post *model.Post) (*model.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	createdAt := post.CreatedAt
	if !createdAt.Valid {
		createdAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}

	newPost := &model.Post{
		ID:         p.nextID,
		AuthorID:   post.AuthorID,
		AuthorName: post.AuthorName,
		Caption:    post.Caption,
		MediaURL:   post.MediaURL,
		CreatedAt:  createdAt,
	}
	p.nextID++

	p.posts[newPost.ID] = newPost

	result := *newPost
	return &result, nil
}

func (p *PostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	post, exists := p.posts[id]
	if !exists {
		p.log.Debug("Post not found by id", slog.Int64("id", id))
		return nil, custom_errors.ErrPostNotFound
	}

	result := *post
	return &result, nil
}

func (p *PostRepository) GetByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var result []*model.Post
	for _, post := range p.posts {
		if post.AuthorID == authorID {
			postCopy := *post
			result = append(result, &postCopy)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

func (p *PostRepository) List(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	all := make([]*model.Post, 0, len(p.posts))
	for _, post := range p.posts {
		postCopy := *post
		all = append(all, &postCopy)
	}

	sortNewestFirst(all)

	if offset >= len(all) {
		return []*model.Post{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}

	return all, nil
}

func (p *PostRepository) Update(ctx context.Context, id int64, update *model.UpdatePostDTO) (*model.Post, error) {
	if update.Caption == nil && update.MediaURL == nil {
		return nil, custom_errors.ErrNoUpdateRows
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	post, exists := p.posts[id]
	if !exists {
		return nil, custom_errors.ErrPostNotFound
	}

	if update.Caption != nil {
		post.Caption = *update.Caption
	}
	if update.MediaURL != nil {
		post.MediaURL = update.MediaURL
	}

	result := *post
	return &result, nil
}

func (p *PostRepository) Delete(ctx context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.posts[id]; !exists {
		return custom_errors.ErrPostNotFound
	}

	delete(p.posts, id)
	return nil
}

func (p *PostRepository) DeleteMany(ctx context.Context, ids []int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		delete(p.posts, id)
	}
	return nil
}

// sortNewestFirst orders by created_at descending, ties broken by id
// descending, matching the postgres queries.
func sortNewestFirst(posts []*model.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Time.Equal(posts[j].CreatedAt.Time) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.Time.After(posts[j].CreatedAt.Time)
	})
}
