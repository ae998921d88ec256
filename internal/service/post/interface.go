package post_service

import (
	"context"

	"pulsefeed-post-service/internal/model"
)

type Service interface {
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	ListFeed(ctx context.Context, page, pageSize int) ([]*model.Post, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Post, error)

	CreatePost(ctx context.Context, post *model.CreatePostDTO) (*model.Post, error)
	UpdatePost(ctx context.Context, id int64, callerID string, update *model.UpdatePostDTO) (*model.Post, error)
	DeletePost(ctx context.Context, id int64, callerID string) (*model.Post, error)

	// ListOwnerPostsUncached and PurgeOwnerPosts are the bulk-deletion
	// storage path used by the account-deletion consumer. Reads bypass the
	// cache; the purge invalidates everything the deleted rows could occupy.
	ListOwnerPostsUncached(ctx context.Context, ownerID string) ([]*model.Post, error)
	PurgeOwnerPosts(ctx context.Context, ownerID string, ids []int64) error
}
