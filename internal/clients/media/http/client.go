package media_client_http

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"

	"resty.dev/v3"

	"pulsefeed-post-service/internal/config"
	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
)

// Client deletes blobs from the media-storage service by the storage key
// derived from the media URL (its last path segment).
type Client struct {
	client *resty.Client
	log    *logger.Logger
}

func NewClient(cfg config.MediaStorage, log *logger.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &Client{
		client: client,
		log:    log,
	}
}

func (c *Client) DeleteByURL(ctx context.Context, mediaURL string) error {
	key, err := storageKey(mediaURL)
	if err != nil {
		c.log.Warn("Cannot derive storage key from media URL",
			slog.String("media_url", mediaURL),
			slog.String("error", err.Error()))
		return err
	}

	resp, err := c.client.R().
		WithContext(ctx).
		SetPathParam("key", key).
		Delete("/media/{key}")
	if err != nil {
		c.log.Warn("Media storage delete request failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s", custom_errors.ErrExternalServiceError, err)
	}

	// 404 counts as success: the blob is already gone, which is all the
	// caller wants.
	if resp.IsError() && resp.StatusCode() != 404 {
		c.log.Warn("Media storage delete returned error status",
			slog.String("key", key),
			slog.Int("status", resp.StatusCode()))
		return fmt.Errorf("%w: media storage returned status %d", custom_errors.ErrExternalServiceError, resp.StatusCode())
	}

	c.log.Debug("Deleted media blob", slog.String("key", key))
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func storageKey(mediaURL string) (string, error) {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return "", fmt.Errorf("invalid media url: %w", err)
	}

	key := path.Base(parsed.Path)
	if key == "." || key == "/" || key == "" {
		return "", fmt.Errorf("media url has no storage key: %s", mediaURL)
	}
	return key, nil
}
