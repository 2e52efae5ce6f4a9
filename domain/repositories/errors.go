package repositories

import "errors"

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrInvalidID        = errors.New("invalid record identifier")
	ErrStoreUnavailable = errors.New("record store unavailable")
)
