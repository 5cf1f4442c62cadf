package drive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = errors.New("drive: invalid cursor format")

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

// IsPageTokenExpired returns true if the error indicates an expired
// changes page token. The caller should fall back to a full listing.
func IsPageTokenExpired(err error) bool {
	return hasStatus(err, http.StatusGone)
}

func hasStatus(err error, code int) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == code
	}
	return false
}
