package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"

	media_client "pulsefeed-post-service/internal/clients/media"
	"pulsefeed-post-service/internal/logger"
	"pulsefeed-post-service/internal/metrics"
	"pulsefeed-post-service/internal/model"
	post_service "pulsefeed-post-service/internal/service/post"
)

// AccountDeletionHandler purges every post of a deleted account. It is
// idempotent: redelivery after a successful run finds no remaining posts and
// completes immediately, and redelivery after a mid-batch failure re-fetches
// whatever is left and retries.
type AccountDeletionHandler struct {
	service  post_service.Service
	media    media_client.Deleter
	log      *logger.Logger
	metrics  metrics.MetricsProvider
	validate *validator.Validate
}

func NewAccountDeletionHandler(
	service post_service.Service,
	media media_client.Deleter,
	log *logger.Logger,
	metrics metrics.MetricsProvider,
) *AccountDeletionHandler {
	return &AccountDeletionHandler{
		service:  service,
		media:    media,
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// Handle processes one account-deletion payload. A nil return means the
// message can be acknowledged; a non-nil return asks the delivery system to
// redeliver. Malformed events return nil: redelivering them can never
// succeed, so they are logged and dropped.
func (h *AccountDeletionHandler) Handle(ctx context.Context, payload []byte) error {
	var event model.AccountDeletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.log.Warn("Dropping undecodable account-deletion event", slog.String("error", err.Error()))
		h.metrics.IncrementConsumerEvents("malformed")
		return nil
	}

	if err := h.validate.Struct(&event); err != nil {
		h.log.Warn("Dropping malformed account-deletion event",
			slog.String("reason", event.Reason),
			slog.String("error", err.Error()))
		h.metrics.IncrementConsumerEvents("malformed")
		return nil
	}

	posts, err := h.service.ListOwnerPostsUncached(ctx, event.UserID)
	if err != nil {
		h.log.Error("Failed to fetch posts for account purge",
			slog.String("user_id", event.UserID),
			slog.String("error", err.Error()))
		h.metrics.IncrementConsumerEvents("failed")
		return err
	}

	if len(posts) == 0 {
		h.log.Debug("No posts to purge for deleted account", slog.String("user_id", event.UserID))
		h.metrics.IncrementConsumerEvents("noop")
		return nil
	}

	ids := make([]int64, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)

		if post.MediaURL == nil || *post.MediaURL == "" {
			continue
		}
		if err := h.media.DeleteByURL(ctx, *post.MediaURL); err != nil {
			// Media cleanup is best-effort: skip and keep purging.
			h.log.Warn("Failed to delete media for purged post",
				slog.Int64("post_id", post.ID),
				slog.String("media_url", *post.MediaURL),
				slog.String("error", err.Error()))
		}
	}

	if err := h.service.PurgeOwnerPosts(ctx, event.UserID, ids); err != nil {
		h.log.Error("Failed to purge posts for deleted account",
			slog.String("user_id", event.UserID),
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()))
		h.metrics.IncrementConsumerEvents("failed")
		return err
	}

	h.log.Info("Purged posts for deleted account",
		slog.String("user_id", event.UserID),
		slog.Int("count", len(ids)),
		slog.String("reason", event.Reason))
	h.metrics.IncrementConsumerEvents("purged")
	return nil
}
