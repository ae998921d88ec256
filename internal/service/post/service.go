package post_service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"pulsefeed-post-service/internal/cache"
	"pulsefeed-post-service/internal/config"
	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
	"pulsefeed-post-service/internal/metrics"
	"pulsefeed-post-service/internal/model"
	post_repository "pulsefeed-post-service/internal/repository/post"
)

// PostService fronts the post repository with read-through caching. Writes
// always mutate the repository first and invalidate the affected cache keys
// after the mutation is durable; invalidation failure is logged and
// swallowed, never surfaced to the caller.
type PostService struct {
	repo     post_repository.Repository
	cache    cache.Cache
	log      *logger.Logger
	metrics  metrics.MetricsProvider
	validate *validator.Validate

	postPolicy cache.Policy
	feedPolicy cache.Policy
	feedPages  int
}

func NewPostService(
	repo post_repository.Repository,
	cacheTier cache.Cache,
	cfg config.Cache,
	log *logger.Logger,
	metrics metrics.MetricsProvider,
) *PostService {
	return &PostService{
		repo:       repo,
		cache:      cacheTier,
		log:        log,
		metrics:    metrics,
		validate:   validator.New(),
		postPolicy: cache.Policy{Local: cfg.PostLocalTTL, Shared: cfg.PostSharedTTL},
		feedPolicy: cache.Policy{Local: cfg.FeedLocalTTL, Shared: cfg.FeedSharedTTL},
		feedPages:  cfg.FeedPagesCached,
	}
}

func (s *PostService) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	key := strconv.FormatInt(id, 10)

	data, err := s.cache.GetOrPopulate(ctx, cache.NamespacePost, key, s.postPolicy, func(ctx context.Context) ([]byte, error) {
		post, err := s.repo.GetByID(ctx, id)
		if err != nil {
			// Absent posts are not cached: ids are never reused, so a
			// negative entry could only mask a subsequent read.
			return nil, err
		}
		return json.Marshal(post)
	})
	if err != nil {
		if errors.Is(err, custom_errors.ErrPostNotFound) {
			s.log.Debug("Post not found", slog.Int64("id", id))
			return nil, custom_errors.ErrPostNotFound
		}
		s.log.Error("Failed to get post", slog.Int64("id", id), slog.String("error", err.Error()))
		return nil, err
	}

	var post model.Post
	if err := json.Unmarshal(data, &post); err != nil {
		if err := s.recoverCorruptEntry(ctx, cache.NamespacePost, key, err, func() (any, error) {
			return s.repo.GetByID(ctx, id)
		}, &post); err != nil {
			return nil, err
		}
	}

	return &post, nil
}

func (s *PostService) ListFeed(ctx context.Context, page, pageSize int) ([]*model.Post, error) {
	if page < 1 || pageSize < 1 {
		s.log.Debug("Invalid feed paging",
			slog.Int("page", page),
			slog.Int("page_size", pageSize))
		return nil, custom_errors.ErrPostValidation
	}

	key := strconv.Itoa(page)

	data, err := s.cache.GetOrPopulate(ctx, cache.NamespaceFeedPage, key, s.feedPolicy, func(ctx context.Context) ([]byte, error) {
		posts, err := s.repo.List(ctx, pageSize, (page-1)*pageSize)
		if err != nil {
			return nil, err
		}
		return json.Marshal(posts)
	})
	if err != nil {
		s.log.Error("Failed to list feed page",
			slog.Int("page", page),
			slog.String("error", err.Error()))
		return nil, err
	}

	var posts []*model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		if err := s.recoverCorruptEntry(ctx, cache.NamespaceFeedPage, key, err, func() (any, error) {
			return s.repo.List(ctx, pageSize, (page-1)*pageSize)
		}, &posts); err != nil {
			return nil, err
		}
	}

	return posts, nil
}

func (s *PostService) ListByOwner(ctx context.Context, ownerID string) ([]*model.Post, error) {
	data, err := s.cache.GetOrPopulate(ctx, cache.NamespaceUserPosts, ownerID, s.postPolicy, func(ctx context.Context) ([]byte, error) {
		posts, err := s.repo.GetByAuthor(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(posts)
	})
	if err != nil {
		s.log.Error("Failed to list posts by owner",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()))
		return nil, err
	}

	var posts []*model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		if err := s.recoverCorruptEntry(ctx, cache.NamespaceUserPosts, ownerID, err, func() (any, error) {
			return s.repo.GetByAuthor(ctx, ownerID)
		}, &posts); err != nil {
			return nil, err
		}
	}

	return posts, nil
}

func (s *PostService) CreatePost(ctx context.Context, post *model.CreatePostDTO) (*model.Post, error) {
	if err := s.validate.Struct(post); err != nil {
		s.log.Debug("Create post validation failed", slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("create", false)
		return nil, custom_errors.ErrPostValidation
	}

	created, err := s.repo.Create(ctx, &model.Post{
		AuthorID:   post.AuthorID,
		AuthorName: post.AuthorName,
		Caption:    post.Caption,
		MediaURL:   post.MediaURL,
	})
	if err != nil {
		s.log.Error("Failed to create post",
			slog.String("author_id", post.AuthorID),
			slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("create", false)
		return nil, err
	}

	s.invalidateOwnerAndFeed(ctx, created.AuthorID)
	s.metrics.IncrementPostOperations("create", true)
	return created, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id int64, callerID string, update *model.UpdatePostDTO) (*model.Post, error) {
	if err := s.validate.Struct(update); err != nil {
		s.log.Debug("Update post validation failed", slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("update", false)
		return nil, custom_errors.ErrPostValidation
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, custom_errors.ErrPostNotFound) {
			s.log.Debug("Post not found for update", slog.Int64("id", id))
			s.metrics.IncrementPostOperations("update", false)
			return nil, custom_errors.ErrPostNotFound
		}
		s.log.Error("Failed to get post for update", slog.Int64("id", id), slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("update", false)
		return nil, err
	}
	if existing.AuthorID != callerID {
		s.log.Debug("Caller is not the owner of post",
			slog.Int64("id", id),
			slog.String("caller_id", callerID),
			slog.String("owner_id", existing.AuthorID))
		s.metrics.IncrementPostOperations("update", false)
		return nil, custom_errors.ErrForbidden
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, custom_errors.ErrNoUpdateRows) {
			s.log.Debug("Update post has no fields to change", slog.Int64("id", id))
			s.metrics.IncrementPostOperations("update", false)
			return nil, custom_errors.ErrPostValidation
		}
		if errors.Is(err, custom_errors.ErrPostNotFound) {
			s.metrics.IncrementPostOperations("update", false)
			return nil, custom_errors.ErrPostNotFound
		}
		s.log.Error("Failed to update post", slog.Int64("id", id), slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("update", false)
		return nil, err
	}

	s.invalidatePost(ctx, id)
	s.invalidateOwnerAndFeed(ctx, updated.AuthorID)
	s.metrics.IncrementPostOperations("update", true)
	return updated, nil
}

func (s *PostService) DeletePost(ctx context.Context, id int64, callerID string) (*model.Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, custom_errors.ErrPostNotFound) {
			s.log.Debug("Post not found for delete", slog.Int64("id", id))
			s.metrics.IncrementPostOperations("delete", false)
			return nil, custom_errors.ErrPostNotFound
		}
		s.log.Error("Failed to get post for delete", slog.Int64("id", id), slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("delete", false)
		return nil, err
	}
	if post.AuthorID != callerID {
		s.log.Debug("Caller is not the owner of post",
			slog.Int64("id", id),
			slog.String("caller_id", callerID),
			slog.String("owner_id", post.AuthorID))
		s.metrics.IncrementPostOperations("delete", false)
		return nil, custom_errors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, custom_errors.ErrPostNotFound) {
			s.metrics.IncrementPostOperations("delete", false)
			return nil, custom_errors.ErrPostNotFound
		}
		s.log.Error("Failed to delete post", slog.Int64("id", id), slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("delete", false)
		return nil, err
	}

	s.invalidatePost(ctx, id)
	s.invalidateOwnerAndFeed(ctx, post.AuthorID)
	s.metrics.IncrementPostOperations("delete", true)

	// The snapshot lets callers clean up externally stored media.
	return post, nil
}

func (s *PostService) ListOwnerPostsUncached(ctx context.Context, ownerID string) ([]*model.Post, error) {
	posts, err := s.repo.GetByAuthor(ctx, ownerID)
	if err != nil {
		s.log.Error("Failed to fetch owner posts for purge",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()))
		return nil, err
	}
	return posts, nil
}

func (s *PostService) PurgeOwnerPosts(ctx context.Context, ownerID string, ids []int64) error {
	if err := s.repo.DeleteMany(ctx, ids); err != nil {
		s.log.Error("Failed to batch delete owner posts",
			slog.String("owner_id", ownerID),
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()))
		s.metrics.IncrementPostOperations("purge", false)
		return err
	}

	postKeys := make([]string, 0, len(ids))
	for _, id := range ids {
		postKeys = append(postKeys, strconv.FormatInt(id, 10))
	}
	if err := s.cache.Remove(ctx, cache.NamespacePost, postKeys...); err != nil {
		s.log.Warn("Failed to invalidate post keys after purge",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()))
	}
	s.invalidateOwnerAndFeed(ctx, ownerID)

	s.metrics.IncrementPostOperations("purge", true)
	s.log.Info("Purged owner posts",
		slog.String("owner_id", ownerID),
		slog.Int("count", len(ids)))
	return nil
}

func (s *PostService) invalidatePost(ctx context.Context, id int64) {
	if err := s.cache.Remove(ctx, cache.NamespacePost, strconv.FormatInt(id, 10)); err != nil {
		s.log.Warn("Failed to invalidate post cache",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
	}
}

// invalidateOwnerAndFeed removes the owner's list entry and the bounded
// feed-page prefix a new or removed post could appear on.
func (s *PostService) invalidateOwnerAndFeed(ctx context.Context, ownerID string) {
	if err := s.cache.Remove(ctx, cache.NamespaceUserPosts, ownerID); err != nil {
		s.log.Warn("Failed to invalidate owner list cache",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()))
	}

	pages := make([]string, 0, s.feedPages)
	for page := 1; page <= s.feedPages; page++ {
		pages = append(pages, strconv.Itoa(page))
	}
	if err := s.cache.Remove(ctx, cache.NamespaceFeedPage, pages...); err != nil {
		s.log.Warn("Failed to invalidate feed page cache",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()))
	}
}

// recoverCorruptEntry drops an undecodable cache entry and re-reads from the
// repository directly, decoding through JSON so both struct and slice
// destinations share one path.
func (s *PostService) recoverCorruptEntry(ctx context.Context, namespace, key string, decodeErr error, load func() (any, error), dest any) error {
	s.log.Warn("Dropping corrupt cache entry",
		slog.String("key", cache.Key(namespace, key)),
		slog.String("error", decodeErr.Error()))

	if err := s.cache.Remove(ctx, namespace, key); err != nil {
		s.log.Warn("Failed to remove corrupt cache entry",
			slog.String("key", cache.Key(namespace, key)),
			slog.String("error", err.Error()))
	}

	fresh, err := load()
	if err != nil {
		return err
	}
	data, err := json.Marshal(fresh)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
