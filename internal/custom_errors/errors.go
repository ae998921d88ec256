package custom_errors

import "errors"

var (
	ErrPostNotFound   = errors.New("post not found")
	ErrForbidden      = errors.New("user is not the owner of this post")
	ErrPostValidation = errors.New("post validation failed")

	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("cache unavailable")

	ErrDatabaseQuery = errors.New("database query error")
	ErrDatabaseScan  = errors.New("database scan error")
	ErrNoUpdateRows  = errors.New("no fields to update")

	ErrExternalServiceError = errors.New("external service error")
)
